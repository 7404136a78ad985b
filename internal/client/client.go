// Package client implements the interactive session: DISCOVER, SEARCH,
// FETCH, UPLOAD, REMOVE, each built on top of the same gather-loop idiom —
// send one request, collect responses until a deadline.
package client

import (
	"fmt"
	"math/rand"
	"net"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"distfs/internal/config"
	"distfs/internal/logging"
	"distfs/internal/mcastconn"
	"distfs/internal/tcpconn"
	"distfs/internal/wire"
)

const tcpBufferSize = 65535

// Discovered is one DISCOVER response.
type Discovered struct {
	Addr      *net.UDPAddr
	FreeSpace uint64
	Group     string
}

// Session is a client's full, process-lifetime state: the command socket,
// the random cmd_seq source, the last-seen-wins search results, and the
// lock serializing console output across the detached FETCH/UPLOAD
// goroutines.
type Session struct {
	cfg  config.ClientConfig
	conn *mcastconn.Conn
	log  *logging.Logger

	rngMu sync.Mutex
	rng   *rand.Rand

	resultsMu sync.Mutex
	results   map[string]*net.UDPAddr

	outMu sync.Mutex
}

// New opens the client's command socket.
func New(cfg config.ClientConfig, log *logging.Logger) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if !strings.HasSuffix(cfg.OutputFolder, "/") {
		cfg.OutputFolder += "/"
	}
	if cfg.OutputFolder != "./" && cfg.OutputFolder != "../" {
		if err := os.MkdirAll(cfg.OutputFolder, 0o755); err != nil {
			return nil, fmt.Errorf("client: create output folder: %w", err)
		}
	}
	conn, err := mcastconn.NewClientSocket()
	if err != nil {
		return nil, fmt.Errorf("client: %w", err)
	}
	return &Session{
		cfg:     cfg,
		conn:    conn,
		log:     log,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		results: make(map[string]*net.UDPAddr),
	}, nil
}

// Close releases the command socket.
func (s *Session) Close() error { return s.conn.Close() }

func (s *Session) nextSeq() uint64 {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return s.rng.Uint64()
}

// Printf serializes console output across concurrent detached goroutines.
func (s *Session) Printf(format string, args ...interface{}) {
	s.outMu.Lock()
	defer s.outMu.Unlock()
	fmt.Printf(format, args...)
}

func (s *Session) groupAddr() net.IP { return net.ParseIP(s.cfg.MulticastGroup) }

// gatherWithin sends nothing itself; it repeatedly receives frames and
// hands each to handle until handle returns true or the deadline passes.
func (s *Session) gatherWithin(timeout time.Duration, handle func(frame []byte, addr *net.UDPAddr) bool) {
	deadline := time.Now().Add(timeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return
		}
		frame, addr, err := s.conn.Receive(remaining)
		if err != nil {
			return
		}
		if handle(frame, addr) {
			return
		}
	}
}

// Discover sends HELLO to the group and collects GOOD_DAY replies for
// timeout. When print is true, each discovery is echoed to the console as
// it arrives (used by the interactive DISCOVER command; UPLOAD runs this
// silently to find an upload target).
func (s *Session) Discover(timeout time.Duration, print bool) []Discovered {
	seq := s.nextSeq()
	frame := wire.EncodeSimple(wire.Hello, seq, nil)
	if err := s.conn.SendToGroup(frame, s.groupAddr(), s.cfg.CommandPort); err != nil {
		s.log.Warn("DISCOVER: send: %v", err)
		return nil
	}

	var found []Discovered
	s.gatherWithin(timeout, func(frame []byte, addr *net.UDPAddr) bool {
		d, ok := parseGoodDay(frame, addr, seq)
		if !ok {
			return false
		}
		found = append(found, d)
		if print {
			s.Printf("Found %s (%s) with free space %d\n", addr.IP, d.Group, d.FreeSpace)
		}
		return false
	})
	return found
}

// parseGoodDay validates frame as a GOOD_DAY reply to seq and, if valid,
// returns the discovered server it describes.
func parseGoodDay(frame []byte, addr *net.UDPAddr, seq uint64) (Discovered, bool) {
	got, err := wire.ValidateComplex(frame, wire.GoodDay, seq, nil)
	if err != nil {
		return Discovered{}, false
	}
	return Discovered{Addr: addr, FreeSpace: got.Param, Group: string(got.Data)}, true
}

// Search sends LIST with pattern to the group, collects MY_LIST responses,
// and rewrites the session's name->address map with last-seen-wins
// semantics: a later response for a name already seen overwrites it.
func (s *Session) Search(pattern string, timeout time.Duration) {
	s.resultsMu.Lock()
	s.results = make(map[string]*net.UDPAddr)
	s.resultsMu.Unlock()

	seq := s.nextSeq()
	frame := wire.EncodeSimple(wire.List, seq, []byte(pattern))
	if err := s.conn.SendToGroup(frame, s.groupAddr(), s.cfg.CommandPort); err != nil {
		s.log.Warn("SEARCH: send: %v", err)
		return
	}

	s.gatherWithin(timeout, func(frame []byte, addr *net.UDPAddr) bool {
		names, ok := parseMyList(frame, seq)
		if !ok {
			return false
		}
		for _, name := range names {
			s.Printf("%s (%s)\n", name, addr.IP)
			s.resultsMu.Lock()
			s.results[name] = addr // last-seen-wins: a later response overwrites
			s.resultsMu.Unlock()
		}
		return false
	})
}

// parseMyList validates frame as a MY_LIST reply to seq and splits its
// newline-separated payload into file names, dropping empty tokens.
func parseMyList(frame []byte, seq uint64) ([]string, bool) {
	got, err := wire.ValidateSimple(frame, wire.MyList, seq, nil)
	if err != nil || len(got.Data) == 0 {
		return nil, false
	}
	var names []string
	for _, name := range strings.Split(string(got.Data), "\n") {
		if name != "" {
			names = append(names, name)
		}
	}
	return names, true
}

func (s *Session) lookupResult(name string) (*net.UDPAddr, bool) {
	s.resultsMu.Lock()
	defer s.resultsMu.Unlock()
	addr, ok := s.results[name]
	return addr, ok
}

// Fetch downloads name from the server that last reported it in a SEARCH
// response. Intended to run detached (no caller waits on it); completion
// surfaces only via console output.
func (s *Session) Fetch(name string) {
	addr, ok := s.lookupResult(name)
	if !ok {
		s.Printf("File wasn't in last search result\n")
		return
	}

	seq := s.nextSeq()
	frame := wire.EncodeSimple(wire.Get, seq, []byte(name))
	reqAddr := &net.UDPAddr{IP: addr.IP, Port: s.cfg.CommandPort}
	if err := s.conn.Send(frame, reqAddr); err != nil {
		s.Printf("File %s downloading failed (%s) %v\n", name, addr.IP, err)
		return
	}

	var tcpPort uint64
	var gotReply bool
	s.gatherWithin(s.cfg.Timeout, func(frame []byte, from *net.UDPAddr) bool {
		got, err := wire.ValidateComplex(frame, wire.ConnectMe, seq, []byte(name))
		if err != nil {
			return false
		}
		tcpPort = got.Param
		gotReply = true
		return true
	})
	if !gotReply {
		s.Printf("File %s downloading failed (%s) timed out waiting for CONNECT_ME\n", name, addr.IP)
		return
	}

	conn, err := tcpconn.Connect(addr.IP.String(), int(tcpPort))
	if err != nil {
		s.Printf("File %s downloading failed (%s:%d) %v\n", name, addr.IP, tcpPort, err)
		return
	}
	defer conn.Close()

	out, err := os.Create(s.cfg.OutputFolder + name)
	if err != nil {
		s.Printf("File %s downloading failed (%s:%d) %v\n", name, addr.IP, tcpPort, err)
		return
	}
	defer out.Close()

	buf := make([]byte, tcpBufferSize)
	for {
		n, rerr := conn.Read(buf)
		if n > 0 {
			if _, werr := out.Write(buf[:n]); werr != nil {
				s.Printf("File %s downloading failed (%s:%d) %v\n", name, addr.IP, tcpPort, werr)
				return
			}
		}
		if rerr != nil {
			break
		}
	}
	s.Printf("File %s downloaded (%s:%d)\n", name, addr.IP, tcpPort)
}

// Upload sends path to whichever discovered server has enough free space,
// trying candidates from most to least free space. Intended to run
// detached, same as Fetch.
func (s *Session) Upload(path string) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		s.Printf("File %s not found\n", path)
		return
	}
	size := uint64(info.Size())
	name := baseName(path)

	candidates := s.Discover(s.cfg.Timeout, false)
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].FreeSpace > candidates[j].FreeSpace })

	for _, c := range candidates {
		if c.FreeSpace < size {
			continue
		}
		if s.tryUploadTo(c.Addr, name, path, size) {
			return
		}
	}
	s.Printf("File %s too big\n", name)
}

func (s *Session) tryUploadTo(addr *net.UDPAddr, name, path string, size uint64) bool {
	seq := s.nextSeq()
	frame := wire.EncodeComplex(wire.Add, seq, size, []byte(name))
	reqAddr := &net.UDPAddr{IP: addr.IP, Port: s.cfg.CommandPort}
	if err := s.conn.Send(frame, reqAddr); err != nil {
		return false
	}

	var tcpPort uint64
	var accepted bool
	var answered bool
	s.gatherWithin(s.cfg.Timeout, func(frame []byte, from *net.UDPAddr) bool {
		if c, err := wire.ValidateComplex(frame, wire.CanAdd, seq, nil); err == nil {
			tcpPort = c.Param
			accepted = true
			answered = true
			return true
		}
		if _, err := wire.ValidateSimple(frame, wire.NoWay, seq, []byte(name)); err == nil {
			answered = true
			return true
		}
		return false
	})
	if !answered || !accepted {
		return false
	}

	conn, err := tcpconn.Connect(addr.IP.String(), int(tcpPort))
	if err != nil {
		s.Printf("File %s uploading failed (%s:%d) %v\n", name, addr.IP, tcpPort, err)
		return false
	}
	defer conn.Close()

	f, err := os.Open(path)
	if err != nil {
		s.Printf("File %s uploading failed (%s:%d) %v\n", name, addr.IP, tcpPort, err)
		return false
	}
	defer f.Close()

	buf := make([]byte, tcpBufferSize)
	for {
		n, rerr := f.Read(buf)
		if n > 0 {
			if werr := tcpconn.WriteAll(conn, buf[:n]); werr != nil {
				s.Printf("File %s uploading failed (%s:%d) %v\n", name, addr.IP, tcpPort, werr)
				return false
			}
		}
		if rerr != nil {
			break
		}
	}
	s.Printf("File %s uploaded (%s:%d)\n", name, addr.IP, tcpPort)
	return true
}

// Remove sends DEL to the group; there is no reply to wait for.
func (s *Session) Remove(name string) {
	seq := s.nextSeq()
	frame := wire.EncodeSimple(wire.Del, seq, []byte(name))
	if err := s.conn.SendToGroup(frame, s.groupAddr(), s.cfg.CommandPort); err != nil {
		s.log.Warn("REMOVE: send: %v", err)
	}
}

func baseName(path string) string {
	i := strings.LastIndexByte(path, '/')
	if i < 0 {
		return path
	}
	return path[i+1:]
}
