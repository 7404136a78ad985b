package console

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLineRequiresArgumentForFetchUploadRemove(t *testing.T) {
	for _, cmd := range []string{"FETCH", "UPLOAD", "REMOVE"} {
		_, _, ok := parseLine(cmd)
		assert.False(t, ok, "%s with no argument must be invalid", cmd)

		got, arg, ok := parseLine(cmd + " file.bin")
		assert.True(t, ok)
		assert.Equal(t, cmd, got)
		assert.Equal(t, "file.bin", arg)
	}
}

func TestParseLineSearchAllowsEmptyPattern(t *testing.T) {
	cmd, arg, ok := parseLine("search")
	assert.True(t, ok)
	assert.Equal(t, "SEARCH", cmd)
	assert.Equal(t, "", arg)

	cmd, arg, ok = parseLine("SEARCH movie")
	assert.True(t, ok)
	assert.Equal(t, "movie", arg)
}

func TestParseLineDiscoverAndExitIgnoreTrailingText(t *testing.T) {
	cmd, _, ok := parseLine("discover all servers")
	assert.True(t, ok)
	assert.Equal(t, "DISCOVER", cmd)

	cmd, _, ok = parseLine("exit now")
	assert.True(t, ok)
	assert.Equal(t, "EXIT", cmd)
}

func TestParseLineRejectsUnknownCommand(t *testing.T) {
	_, _, ok := parseLine("DANCE now")
	assert.False(t, ok)
}

func TestParseLineRejectsBlankLine(t *testing.T) {
	_, _, ok := parseLine("   ")
	assert.False(t, ok)
}

func TestParseLineIsCaseInsensitive(t *testing.T) {
	cmd, _, ok := parseLine("FeTcH x")
	assert.True(t, ok)
	assert.Equal(t, "FETCH", cmd)
}
