// Package console is the line-oriented interactive prompt: one command per
// line, case-insensitive, whitespace-delimited.
package console

import (
	"bufio"
	"io"
	"strings"

	"distfs/internal/client"
	"distfs/internal/config"
)

// commandsWithArg must be followed by a non-empty argument or the whole
// line is treated as invalid and silently ignored.
var commandsWithArg = map[string]bool{
	"FETCH":  true,
	"UPLOAD": true,
	"REMOVE": true,
}

// commandsWithoutArg take no argument; SEARCH is handled separately since
// its argument (the pattern) is optional.
var commandsWithoutArg = map[string]bool{
	"DISCOVER": true,
	"EXIT":     true,
}

// parseLine splits the first word off line, uppercases it, and reports
// whether the result is one of the known commands with the shape it
// requires. An unrecognized command, or one missing a required argument,
// is reported as !ok.
func parseLine(line string) (cmd, arg string, ok bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return "", "", false
	}
	fields := strings.SplitN(line, " ", 2)
	cmd = strings.ToUpper(fields[0])
	if len(fields) == 2 {
		arg = strings.TrimSpace(fields[1])
	}

	switch {
	case cmd == "SEARCH":
		return cmd, arg, true // empty pattern matches everything
	case commandsWithArg[cmd]:
		return cmd, arg, arg != ""
	case commandsWithoutArg[cmd]:
		return cmd, "", true
	default:
		return cmd, arg, false
	}
}

// Run reads commands from in until EOF or an EXIT line, dispatching each to
// sess. FETCH and UPLOAD are detached: Run does not wait for them, matching
// the session's "no join" completion model — their result only ever
// surfaces as console output printed under the session's output lock.
func Run(in io.Reader, sess *client.Session, cfg config.ClientConfig) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		cmd, arg, ok := parseLine(scanner.Text())
		if !ok {
			continue
		}
		switch cmd {
		case "DISCOVER":
			sess.Discover(cfg.Timeout, true)
		case "SEARCH":
			sess.Search(arg, cfg.Timeout)
		case "FETCH":
			go sess.Fetch(arg)
		case "UPLOAD":
			go sess.Upload(arg)
		case "REMOVE":
			sess.Remove(arg)
		case "EXIT":
			return
		}
	}
}
