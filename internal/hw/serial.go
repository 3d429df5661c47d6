package hw

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"go.bug.st/serial"
)

// SerialReader reads newline terminated uids from a reader module attached
// to a serial port.
type SerialReader struct {
	port    io.ReadCloser
	buf     []byte
	pending []string
}

func OpenSerial(device string, baud int, timeout time.Duration) (*SerialReader, error) {
	if device == "" {
		device = "/dev/ttyUSB0"
	}
	if baud <= 0 {
		baud = 115200
	}

	p, err := serial.Open(device, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("failed to open reader %s: %w", device, err)
	}
	if err := p.SetReadTimeout(timeout); err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("failed to set read timeout on %s: %w", device, err)
	}
	return &SerialReader{port: p}, nil
}

func newSerialReader(rc io.ReadCloser) *SerialReader {
	return &SerialReader{port: rc}
}

// Read returns the next uid, or ErrReadTimeout when a poll step saw nothing.
func (s *SerialReader) Read(ctx context.Context) (string, error) {
	chunk := make([]byte, 64)
	for {
		if len(s.pending) > 0 {
			uid := s.pending[0]
			s.pending = s.pending[1:]
			return uid, nil
		}
		if err := ctx.Err(); err != nil {
			return "", err
		}

		n, err := s.port.Read(chunk)
		if n == 0 && err == nil {
			return "", ErrReadTimeout
		}
		s.buf = append(s.buf, chunk[:n]...)
		s.splitLines()
		if err != nil && len(s.pending) == 0 {
			return "", fmt.Errorf("reader: %w", err)
		}
	}
}

func (s *SerialReader) splitLines() {
	for {
		i := bytes.IndexAny(s.buf, "\r\n")
		if i < 0 {
			return
		}
		if uid := NormalizeUID(string(s.buf[:i])); uid != "" {
			s.pending = append(s.pending, uid)
		}
		s.buf = s.buf[i+1:]
	}
}

func (s *SerialReader) Close() error {
	return s.port.Close()
}
