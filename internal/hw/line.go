package hw

import (
	"bufio"
	"context"
	"io"
	"sync"
	"time"
)

// LineReader treats each line of an io.Reader as a presented card. It backs
// the "stdin" reader type used on a bench without reader hardware.
type LineReader struct {
	lines    chan string
	done     chan struct{}
	stop     chan struct{}
	stopOnce sync.Once
	err      error
	timeout  time.Duration
	closer   io.Closer
}

func NewLineReader(r io.Reader, timeout time.Duration) *LineReader {
	lr := &LineReader{
		lines:   make(chan string),
		done:    make(chan struct{}),
		stop:    make(chan struct{}),
		timeout: timeout,
	}
	if c, ok := r.(io.Closer); ok {
		lr.closer = c
	}
	go lr.scan(r)
	return lr
}

func (l *LineReader) scan(r io.Reader) {
	defer close(l.done)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		uid := NormalizeUID(sc.Text())
		if uid == "" {
			continue
		}
		select {
		case l.lines <- uid:
		case <-l.stop:
			l.err = io.ErrClosedPipe
			return
		}
	}
	l.err = sc.Err()
	if l.err == nil {
		l.err = io.EOF
	}
}

func (l *LineReader) Read(ctx context.Context) (string, error) {
	t := time.NewTimer(l.timeout)
	defer t.Stop()

	select {
	case uid := <-l.lines:
		return uid, nil
	case <-l.done:
		return "", l.err
	case <-t.C:
		return "", ErrReadTimeout
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (l *LineReader) Close() error {
	l.stopOnce.Do(func() { close(l.stop) })
	if l.closer != nil {
		return l.closer.Close()
	}
	return nil
}
