package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimpleRoundTrip(t *testing.T) {
	frame := EncodeSimple(Hello, 42, []byte("payload"))
	assert.Equal(t, SimpleHeaderSize+len("payload"), len(frame))

	got, err := DecodeSimple(frame)
	require.NoError(t, err)
	assert.Equal(t, Hello, got.Cmd)
	assert.Equal(t, uint64(42), got.Seq)
	assert.Equal(t, []byte("payload"), got.Data)
}

func TestComplexRoundTrip(t *testing.T) {
	frame := EncodeComplex(ConnectMe, 7, 9001, []byte("movie.mkv"))
	assert.Equal(t, ComplexHeaderSize+len("movie.mkv"), len(frame))

	got, err := DecodeComplex(frame)
	require.NoError(t, err)
	assert.Equal(t, ConnectMe, got.Cmd)
	assert.Equal(t, uint64(7), got.Seq)
	assert.Equal(t, uint64(9001), got.Param)
	assert.Equal(t, []byte("movie.mkv"), got.Data)
}

func TestEmptyDataMinimumLengths(t *testing.T) {
	s := EncodeSimple(Del, 1, nil)
	assert.Equal(t, SimpleHeaderSize, len(s))

	c := EncodeComplex(CanAdd, 1, 0, nil)
	assert.Equal(t, ComplexHeaderSize, len(c))
}

func TestDecodeRejectsTooSmall(t *testing.T) {
	_, err := DecodeSimple(make([]byte, SimpleHeaderSize-1))
	assert.ErrorIs(t, err, ErrTooSmall)

	_, err = DecodeComplex(make([]byte, ComplexHeaderSize-1))
	assert.ErrorIs(t, err, ErrTooSmall)
}

func TestCmdFieldTruncatesAndZeroPads(t *testing.T) {
	frame := EncodeSimple("HELLO", 1, nil)
	for i := len("HELLO"); i < CmdFieldSize; i++ {
		assert.Equal(t, byte(0), frame[i])
	}

	long := EncodeSimple("CONNECT_ME_NOW", 1, nil)
	assert.Equal(t, SimpleHeaderSize, len(long))
	assert.Equal(t, "CONNECT_ME", string(long[:CmdFieldSize]))
}

func TestMatchCmdRequiresZeroPaddingToExactLength(t *testing.T) {
	field := make([]byte, CmdFieldSize)
	copy(field, "GET")
	assert.True(t, MatchCmd(field, Get))
	assert.False(t, MatchCmd(field, Del))

	field[5] = 'X'
	assert.False(t, MatchCmd(field, Get))
}

func TestValidateSimpleChecksSeqThenCmdThenData(t *testing.T) {
	frame := EncodeSimple(NoWay, 5, []byte("f.txt"))

	_, err := ValidateSimple(frame, NoWay, 99, nil)
	assert.ErrorIs(t, err, ErrWrongSeq)

	_, err = ValidateSimple(frame, CanAdd, 5, nil)
	assert.ErrorIs(t, err, ErrWrongCmd)

	_, err = ValidateSimple(frame, NoWay, 5, []byte("other.txt"))
	assert.ErrorIs(t, err, ErrWrongData)

	got, err := ValidateSimple(frame, NoWay, 5, []byte("f.txt"))
	require.NoError(t, err)
	assert.Equal(t, []byte("f.txt"), got.Data)
}

func TestValidateComplexChecksParamAndData(t *testing.T) {
	frame := EncodeComplex(GoodDay, 3, 4096, []byte("239.1.1.1"))

	got, err := ValidateComplex(frame, GoodDay, 3, []byte("239.1.1.1"))
	require.NoError(t, err)
	assert.Equal(t, uint64(4096), got.Param)

	_, err = ValidateComplex(frame, GoodDay, 3, []byte("nope"))
	assert.ErrorIs(t, err, ErrWrongData)
}

func TestMaxDataConstants(t *testing.T) {
	assert.Equal(t, MaxDatagram-SimpleHeaderSize, MaxSimpleData)
	assert.Equal(t, MaxDatagram-ComplexHeaderSize, MaxComplexData)
}
