// Package server is the dispatcher side of the protocol: a single reader
// loop over the multicast command socket that spawns a detached goroutine
// per accepted frame, plus the per-command handlers (HELLO/LIST/GET/ADD/DEL).
package server

import (
	"fmt"
	"net"
	"os"
	"strings"

	"distfs/internal/config"
	"distfs/internal/fileset"
	"distfs/internal/logging"
	"distfs/internal/mcastconn"
	"distfs/internal/tcpconn"
	"distfs/internal/wire"
)

const tcpBufferSize = 65535

// Server owns the command socket, the file catalog, and the shared folder.
type Server struct {
	cfg   config.ServerConfig
	files *fileset.Set
	conn  *mcastconn.Conn
	log   *logging.Logger
}

// New validates cfg, creates the shared folder if missing, and joins the
// command multicast group. It does not start reading yet; call Run for that.
func New(cfg config.ServerConfig, log *logging.Logger) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if !strings.HasSuffix(cfg.SharedFolder, "/") {
		cfg.SharedFolder += "/"
	}
	if cfg.SharedFolder != "./" && cfg.SharedFolder != "../" {
		if err := os.MkdirAll(cfg.SharedFolder, 0o755); err != nil {
			return nil, fmt.Errorf("server: create shared folder: %w", err)
		}
	}
	group := net.ParseIP(cfg.MulticastGroup)
	conn, err := mcastconn.NewServerSocket(cfg.CommandPort, group)
	if err != nil {
		return nil, fmt.Errorf("server: %w", err)
	}
	return &Server{
		cfg:   cfg,
		files: fileset.New(cfg.MaxSpace),
		conn:  conn,
		log:   log,
	}, nil
}

// Close releases the command socket.
func (s *Server) Close() error { return s.conn.Close() }

// Run is the dispatch loop: read one frame, validate its shape, spawn a
// detached handler. It returns only on a socket error.
func (s *Server) Run() error {
	for {
		frame, addr, err := s.conn.ReceiveBlocking()
		if err != nil {
			return fmt.Errorf("server: receive: %w", err)
		}
		s.dispatch(frame, addr)
	}
}

func (s *Server) dispatch(frame []byte, addr *net.UDPAddr) {
	cmdField, seq, rest, err := wire.DecodeHeader(frame)
	if err != nil {
		s.log.PackageSkip(addr.IP.String(), addr.Port, "Message too small")
		return
	}

	switch {
	case wire.MatchCmd(cmdField, wire.Hello):
		go s.handleHello(addr, seq)

	case wire.MatchCmd(cmdField, wire.List):
		go s.handleList(addr, seq, string(rest))

	case wire.MatchCmd(cmdField, wire.Get):
		name := string(rest)
		if name == "" {
			s.log.PackageSkip(addr.IP.String(), addr.Port, "file to send not specified")
			return
		}
		if !s.files.Contains(name) {
			s.log.PackageSkip(addr.IP.String(), addr.Port, fmt.Sprintf("server does not have the requested file %q", name))
			return
		}
		go s.handleGet(addr, seq, name)

	case wire.MatchCmd(cmdField, wire.Del):
		name := string(rest)
		if name == "" {
			s.log.PackageSkip(addr.IP.String(), addr.Port, "file to delete not specified")
			return
		}
		go s.handleDel(name)

	case wire.MatchCmd(cmdField, wire.Add):
		param, data, err := wire.SplitParam(rest)
		if err != nil {
			s.log.PackageSkip(addr.IP.String(), addr.Port, "command too short")
			return
		}
		name := string(data)
		if name == "" {
			s.log.PackageSkip(addr.IP.String(), addr.Port, "file to save on server not specified")
			return
		}
		if strings.Contains(name, "/") {
			s.log.PackageSkip(addr.IP.String(), addr.Port, fmt.Sprintf("file name %q contains a path separator", name))
			return
		}
		go s.handleAdd(addr, seq, name, param)

	case wire.MatchCmd(cmdField, wire.GoodDay), wire.MatchCmd(cmdField, wire.MyList),
		wire.MatchCmd(cmdField, wire.ConnectMe), wire.MatchCmd(cmdField, wire.CanAdd),
		wire.MatchCmd(cmdField, wire.NoWay):
		// These are response shapes the server never originates a request
		// for; receiving one here means some peer addressed us by mistake.
		// Silently ignored, matching the original's tolerant behavior.

	default:
		s.log.PackageSkip(addr.IP.String(), addr.Port, "unknown command")
	}
}

func (s *Server) handleHello(addr *net.UDPAddr, seq uint64) {
	reply := wire.EncodeComplex(wire.GoodDay, seq, s.files.LeftSpace(), []byte(s.cfg.MulticastGroup))
	if err := s.conn.Send(reply, addr); err != nil {
		s.log.Warn("HELLO reply to %s failed: %v", addr, err)
	}
}

// handleList holds the name-set read lock for the whole response: every
// send is a local, non-blocking syscall, so this is the one handler allowed
// to keep a file-set lock across a suspension point.
func (s *Server) handleList(addr *net.UDPAddr, seq uint64, pattern string) {
	s.files.WithMatchingLocked(pattern, func(names []string) {
		var chunk strings.Builder
		flush := func() {
			if chunk.Len() == 0 {
				return
			}
			frame := wire.EncodeSimple(wire.MyList, seq, []byte(chunk.String()))
			if err := s.conn.Send(frame, addr); err != nil {
				s.log.Warn("LIST reply to %s failed: %v", addr, err)
			}
			chunk.Reset()
		}
		for _, name := range names {
			extra := len(name)
			if chunk.Len() > 0 {
				extra++ // separating newline
			}
			if chunk.Len()+extra >= wire.MaxSimpleData {
				flush()
			}
			if chunk.Len() > 0 {
				chunk.WriteByte('\n')
			}
			chunk.WriteString(name)
		}
		flush()
	})
}

func (s *Server) handleGet(addr *net.UDPAddr, seq uint64, name string) {
	listener, port, err := tcpconn.ListenEphemeral()
	if err != nil {
		s.log.Warn("GET %s: listen: %v", name, err)
		return
	}
	defer listener.Close()

	reply := wire.EncodeComplex(wire.ConnectMe, seq, uint64(port), []byte(name))
	if err := s.conn.Send(reply, addr); err != nil {
		s.log.Warn("GET %s: reply: %v", name, err)
		return
	}

	conn, err := tcpconn.Accept(listener, s.cfg.Timeout)
	if err != nil {
		// The client is left to time out on its own; no failure report exists.
		return
	}
	defer conn.Close()

	f, err := os.Open(s.cfg.SharedFolder + name)
	if err != nil {
		return
	}
	defer f.Close()

	buf := make([]byte, tcpBufferSize)
	for {
		n, rerr := f.Read(buf)
		if n > 0 {
			if werr := tcpconn.WriteAll(conn, buf[:n]); werr != nil {
				return
			}
		}
		if rerr != nil {
			return
		}
	}
}

func (s *Server) handleAdd(addr *net.UDPAddr, seq uint64, name string, size uint64) {
	if !s.files.Admit(name, size) {
		reply := wire.EncodeSimple(wire.NoWay, seq, []byte(name))
		if err := s.conn.Send(reply, addr); err != nil {
			s.log.Warn("ADD %s: NO_WAY reply: %v", name, err)
		}
		return
	}

	listener, port, err := tcpconn.ListenEphemeral()
	if err != nil {
		s.files.Evict(name, size)
		s.log.Warn("ADD %s: listen: %v", name, err)
		return
	}
	defer listener.Close()

	reply := wire.EncodeComplex(wire.CanAdd, seq, uint64(port), nil)
	if err := s.conn.Send(reply, addr); err != nil {
		s.files.Evict(name, size)
		s.log.Warn("ADD %s: reply: %v", name, err)
		return
	}

	conn, err := tcpconn.Accept(listener, s.cfg.Timeout)
	if err != nil {
		s.files.Evict(name, size)
		return
	}
	defer conn.Close()

	dest := s.cfg.SharedFolder + name
	if !s.downloadInto(conn, dest, size) {
		s.files.Evict(name, size)
		if _, statErr := os.Stat(dest); statErr == nil {
			_ = os.Remove(dest)
		}
	}
}

// downloadInto reads exactly size bytes from conn into a new file at dest.
func (s *Server) downloadInto(conn net.Conn, dest string, size uint64) bool {
	f, err := os.Create(dest)
	if err != nil {
		return false
	}
	defer f.Close()

	buf := make([]byte, tcpBufferSize)
	var received uint64
	for received < size {
		chunk := buf
		if rem := size - received; rem < uint64(len(chunk)) {
			chunk = chunk[:rem]
		}
		n, err := conn.Read(chunk)
		if n > 0 {
			if _, werr := f.Write(buf[:n]); werr != nil {
				return false
			}
			received += uint64(n)
		}
		if err != nil {
			return received >= size
		}
	}
	return true
}

func (s *Server) handleDel(name string) {
	path := s.cfg.SharedFolder + name
	info, statErr := os.Stat(path)
	if statErr != nil {
		s.files.Remove(name)
		return
	}
	size := uint64(info.Size())
	s.files.Evict(name, size)
	_ = os.Remove(path) // filesystem errors are swallowed, matching the original
}
