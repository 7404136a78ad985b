// Package wire implements the two datagram shapes exchanged between
// clients and servers: the simple frame (cmd + cmd_seq + data) and the
// complex frame (cmd + cmd_seq + param + data).
package wire

import (
	"encoding/binary"
	"errors"
)

const (
	// CmdFieldSize is the fixed, NUL-padded width of the cmd field.
	CmdFieldSize = 10
	seqSize      = 8
	paramSize    = 8

	// SimpleHeaderSize is cmd+cmd_seq, present at the front of every frame.
	SimpleHeaderSize = CmdFieldSize + seqSize // 18
	// ComplexHeaderSize is cmd+cmd_seq+param.
	ComplexHeaderSize = SimpleHeaderSize + paramSize // 26

	// MaxDatagram is the largest UDP payload this protocol will send or accept.
	MaxDatagram = 65507

	// MaxSimpleData and MaxComplexData bound the data section of each shape
	// so that a full frame never exceeds MaxDatagram.
	MaxSimpleData  = MaxDatagram - SimpleHeaderSize
	MaxComplexData = MaxDatagram - ComplexHeaderSize
)

// Wire command names, fixed ASCII strings no longer than CmdFieldSize.
const (
	Hello     = "HELLO"
	GoodDay   = "GOOD_DAY"
	List      = "LIST"
	MyList    = "MY_LIST"
	Get       = "GET"
	ConnectMe = "CONNECT_ME"
	Del       = "DEL"
	Add       = "ADD"
	CanAdd    = "CAN_ADD"
	NoWay     = "NO_WAY"
)

var (
	ErrTooSmall  = errors.New("message too small")
	ErrWrongSeq  = errors.New("wrong cmd_seq")
	ErrWrongCmd  = errors.New("wrong cmd")
	ErrWrongData = errors.New("wrong data")
)

// Simple is a decoded simple frame.
type Simple struct {
	Cmd  string
	Seq  uint64
	Data []byte
}

// Complex is a decoded complex frame.
type Complex struct {
	Cmd   string
	Seq   uint64
	Param uint64
	Data  []byte
}

func putCmd(dst []byte, cmd string) {
	n := len(cmd)
	if n > len(dst) {
		n = len(dst)
	}
	copy(dst, cmd[:n])
	for i := n; i < len(dst); i++ {
		dst[i] = 0
	}
}

// EncodeSimple builds a simple frame: cmd(10) + cmd_seq(8) + data.
func EncodeSimple(cmd string, seq uint64, data []byte) []byte {
	buf := make([]byte, SimpleHeaderSize+len(data))
	putCmd(buf[0:CmdFieldSize], cmd)
	binary.BigEndian.PutUint64(buf[CmdFieldSize:SimpleHeaderSize], seq)
	copy(buf[SimpleHeaderSize:], data)
	return buf
}

// EncodeComplex builds a complex frame: cmd(10) + cmd_seq(8) + param(8) + data.
func EncodeComplex(cmd string, seq, param uint64, data []byte) []byte {
	buf := make([]byte, ComplexHeaderSize+len(data))
	putCmd(buf[0:CmdFieldSize], cmd)
	binary.BigEndian.PutUint64(buf[CmdFieldSize:SimpleHeaderSize], seq)
	binary.BigEndian.PutUint64(buf[SimpleHeaderSize:ComplexHeaderSize], param)
	copy(buf[ComplexHeaderSize:], data)
	return buf
}

// MatchCmd reports whether the 10-byte cmd field equals expected, NUL-padded.
// Comparison is byte-by-byte across the full field, mirroring the original
// compare_cmd: every byte past len(expected) must be zero.
func MatchCmd(field []byte, expected string) bool {
	if len(field) != CmdFieldSize {
		return false
	}
	for i := 0; i < CmdFieldSize; i++ {
		if i < len(expected) {
			if field[i] != expected[i] {
				return false
			}
		} else if field[i] != 0 {
			return false
		}
	}
	return true
}

// DecodeHeader parses the cmd+cmd_seq prefix shared by both frame shapes and
// returns the remaining bytes (param+data for a complex frame, data alone
// for a simple frame — the caller knows which shape a given cmd implies).
func DecodeHeader(b []byte) (cmdField []byte, seq uint64, rest []byte, err error) {
	if len(b) < SimpleHeaderSize {
		return nil, 0, nil, ErrTooSmall
	}
	cmdField = b[0:CmdFieldSize]
	seq = binary.BigEndian.Uint64(b[CmdFieldSize:SimpleHeaderSize])
	rest = b[SimpleHeaderSize:]
	return cmdField, seq, rest, nil
}

// SplitParam pulls the param field off the front of rest, as returned by
// DecodeHeader, for frames known to be complex-shaped.
func SplitParam(rest []byte) (param uint64, data []byte, err error) {
	if len(rest) < paramSize {
		return 0, nil, ErrTooSmall
	}
	param = binary.BigEndian.Uint64(rest[0:paramSize])
	return param, rest[paramSize:], nil
}

// DecodeSimple parses a full simple frame with no prior knowledge of its cmd.
func DecodeSimple(b []byte) (Simple, error) {
	cmdField, seq, rest, err := DecodeHeader(b)
	if err != nil {
		return Simple{}, err
	}
	return Simple{Cmd: trimCmd(cmdField), Seq: seq, Data: rest}, nil
}

// DecodeComplex parses a full complex frame with no prior knowledge of its cmd.
func DecodeComplex(b []byte) (Complex, error) {
	cmdField, seq, rest, err := DecodeHeader(b)
	if err != nil {
		return Complex{}, err
	}
	param, data, err := SplitParam(rest)
	if err != nil {
		return Complex{}, err
	}
	return Complex{Cmd: trimCmd(cmdField), Seq: seq, Param: param, Data: data}, nil
}

func trimCmd(field []byte) string {
	n := 0
	for n < len(field) && field[n] != 0 {
		n++
	}
	return string(field[:n])
}

// ValidateSimple decodes b as a simple frame and checks it is the expected
// response to a prior request: matching cmd, matching cmd_seq, and — when
// expectData is non-nil — an exact data match. Mirrors is_valid_simpl_cmd.
func ValidateSimple(b []byte, expectCmd string, expectSeq uint64, expectData []byte) (Simple, error) {
	cmdField, seq, rest, err := DecodeHeader(b)
	if err != nil {
		return Simple{}, err
	}
	if seq != expectSeq {
		return Simple{}, ErrWrongSeq
	}
	if !MatchCmd(cmdField, expectCmd) {
		return Simple{}, ErrWrongCmd
	}
	if expectData != nil && !bytesEqual(rest, expectData) {
		return Simple{}, ErrWrongData
	}
	return Simple{Cmd: expectCmd, Seq: seq, Data: rest}, nil
}

// ValidateComplex is ValidateSimple's counterpart for complex frames.
func ValidateComplex(b []byte, expectCmd string, expectSeq uint64, expectData []byte) (Complex, error) {
	cmdField, seq, rest, err := DecodeHeader(b)
	if err != nil {
		return Complex{}, err
	}
	if seq != expectSeq {
		return Complex{}, ErrWrongSeq
	}
	if !MatchCmd(cmdField, expectCmd) {
		return Complex{}, ErrWrongCmd
	}
	param, data, err := SplitParam(rest)
	if err != nil {
		return Complex{}, err
	}
	if expectData != nil && !bytesEqual(data, expectData) {
		return Complex{}, ErrWrongData
	}
	return Complex{Cmd: expectCmd, Seq: seq, Param: param, Data: data}, nil
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
