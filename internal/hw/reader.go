// Package hw wraps the card reader and the door sensor pins behind small
// interfaces the trackers poll.
package hw

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// ErrReadTimeout is returned by CardReader.Read when no card was seen during
// one poll step. It is not fatal; callers poll again.
var ErrReadTimeout = errors.New("card read timeout")

// CardReader yields the uid of each card target the reader sees. Read blocks
// until a target is seen, the poll step times out, or ctx is done.
type CardReader interface {
	Read(ctx context.Context) (string, error)
	Close() error
}

type ReaderConfig struct {
	Type    string // "serial", "stdin", "none"
	Device  string // e.g. /dev/ttyUSB0
	Baud    int
	Timeout time.Duration
}

// NewCardReader opens the reader described by cfg. A "none" reader returns
// (nil, nil); the station then runs without a card loop.
func NewCardReader(cfg ReaderConfig) (CardReader, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 250 * time.Millisecond
	}
	switch strings.ToLower(cfg.Type) {
	case "none", "":
		return nil, nil
	case "stdin", "keyboard":
		// bufio hides os.Stdin's Close so stopping the reader leaves stdin open
		return NewLineReader(bufio.NewReader(os.Stdin), cfg.Timeout), nil
	case "serial":
		r, err := OpenSerial(cfg.Device, cfg.Baud, cfg.Timeout)
		if err != nil {
			return nil, err
		}
		return r, nil
	default:
		return nil, fmt.Errorf("unknown reader type %q", cfg.Type)
	}
}

// NormalizeUID turns a reader line like "04 A1:B2-C3" into "04a1b2c3".
// It returns "" when the line is not a hex uid.
func NormalizeUID(line string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(line)) {
		switch {
		case r == ' ' || r == ':' || r == '-':
			continue
		case (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f'):
			b.WriteRune(r)
		default:
			return ""
		}
	}
	return b.String()
}
