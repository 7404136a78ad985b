package client

import (
	"net"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"distfs/internal/config"
	"distfs/internal/logging"
	"distfs/internal/wire"
)

func newTestSession(t *testing.T) *Session {
	t.Helper()
	cfg := config.ClientConfig{
		MulticastGroup: "239.2.2.2",
		CommandPort:    52001,
		OutputFolder:   t.TempDir() + "/",
		Timeout:        2 * time.Second,
	}
	require.NoError(t, cfg.Validate())
	s, err := New(cfg, logging.New(os.Stderr, logging.Error))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestParseGoodDayRejectsWrongSeq(t *testing.T) {
	addr := &net.UDPAddr{IP: net.ParseIP("10.0.0.5"), Port: 1234}
	frame := wire.EncodeComplex(wire.GoodDay, 9, 4096, []byte("239.1.1.1"))

	d, ok := parseGoodDay(frame, addr, 1)
	assert.False(t, ok)

	d, ok = parseGoodDay(frame, addr, 9)
	require.True(t, ok)
	assert.Equal(t, uint64(4096), d.FreeSpace)
	assert.Equal(t, "239.1.1.1", d.Group)
}

func TestParseMyListSplitsAndDropsEmptyTokens(t *testing.T) {
	frame := wire.EncodeSimple(wire.MyList, 3, []byte("a.txt\n\nb.txt"))
	names, ok := parseMyList(frame, 3)
	require.True(t, ok)
	assert.Equal(t, []string{"a.txt", "b.txt"}, names)

	_, ok = parseMyList(wire.EncodeSimple(wire.MyList, 3, nil), 3)
	assert.False(t, ok, "empty data should not produce a match")
}

func TestSearchOverwritesWithLastSeenWins(t *testing.T) {
	s := newTestSession(t)
	first := &net.UDPAddr{IP: net.ParseIP("10.0.0.1"), Port: 1}
	second := &net.UDPAddr{IP: net.ParseIP("10.0.0.2"), Port: 2}

	s.resultsMu.Lock()
	s.results["movie.mkv"] = first
	s.resultsMu.Unlock()

	// simulate what Search's handler does on a later response for the same name
	s.resultsMu.Lock()
	s.results["movie.mkv"] = second
	s.resultsMu.Unlock()

	addr, ok := s.lookupResult("movie.mkv")
	require.True(t, ok)
	assert.Equal(t, second, addr, "a later SEARCH response must overwrite an earlier one")
}

func TestFetchFailsFastWhenNameNotInResults(t *testing.T) {
	s := newTestSession(t)
	// Fetch prints and returns without attempting network I/O; this just
	// exercises the fast path doesn't panic or block.
	s.Fetch("never-searched-for.bin")
}

func TestBaseNameStripsDirectory(t *testing.T) {
	assert.Equal(t, "movie.mkv", baseName("/home/user/movie.mkv"))
	assert.Equal(t, "movie.mkv", baseName("movie.mkv"))
}

func TestGatherWithinStopsAtDeadline(t *testing.T) {
	s := newTestSession(t)
	start := time.Now()
	calls := 0
	s.gatherWithin(150*time.Millisecond, func(frame []byte, addr *net.UDPAddr) bool {
		calls++
		return false
	})
	assert.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond)
	assert.Equal(t, 0, calls, "no datagrams were sent, so the handler should never run")
}

func TestNextSeqProducesDistinctValues(t *testing.T) {
	s := newTestSession(t)
	seen := map[uint64]bool{}
	for i := 0; i < 8; i++ {
		seen[s.nextSeq()] = true
	}
	assert.Greater(t, len(seen), 1, "random cmd_seq generator should not be constant")
}
