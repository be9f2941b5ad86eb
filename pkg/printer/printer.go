// Package printer streams G-code programs to a printer over a serial port
package printer

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"go.bug.st/serial"
)

// DefaultBaudRate is the Marlin default
const DefaultBaudRate = 115200

// readTimeout bounds each serial read so a silent printer can still be cancelled
const readTimeout = 200 * time.Millisecond

// ErrPrinter is returned when the printer rejects a line
var ErrPrinter = errors.New("printer error")

// ListPorts returns the serial ports present on the system
func ListPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}
	return ports, nil
}

// Open opens a serial port at baud
func Open(name string, baud int) (serial.Port, error) {
	if baud <= 0 {
		baud = DefaultBaudRate
	}
	port, err := serial.Open(name, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", name, err)
	}
	if err := port.SetReadTimeout(readTimeout); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("failed to set read timeout on %s: %w", name, err)
	}
	return port, nil
}

// Sender writes one line at a time and waits for the printer's "ok"
type Sender struct {
	w io.Writer
	r io.Reader
}

// NewSender creates a sender over rw. A read returning no data and no
// error is treated as a timeout and retried.
func NewSender(rw io.ReadWriter) *Sender {
	return &Sender{w: rw, r: rw}
}

type reply struct {
	line string
	err  error
}

// Send streams program and returns the number of lines acknowledged.
// Comments and blank lines are not sent.
func (s *Sender) Send(ctx context.Context, program io.Reader) (int, error) {
	logger := log.FromContext(ctx)
	stop := make(chan struct{})
	defer close(stop)
	replies := s.readReplies(stop)

	scanner := bufio.NewScanner(program)
	sent := 0
	for scanner.Scan() {
		line := StripComment(scanner.Text())
		if line == "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return sent, err
		}

		logger.Debug("send", "line", line)
		if _, err := io.WriteString(s.w, line+"\n"); err != nil {
			return sent, fmt.Errorf("failed to write %q: %w", line, err)
		}
		if err := waitOK(ctx, replies, logger); err != nil {
			return sent, fmt.Errorf("%q: %w", line, err)
		}
		sent++
	}
	if err := scanner.Err(); err != nil {
		return sent, fmt.Errorf("failed to read program: %w", err)
	}
	return sent, nil
}

// readReplies splits printer output into lines until stop is closed or
// the port fails. The error, if any, comes with the unterminated remainder.
func (s *Sender) readReplies(stop <-chan struct{}) <-chan reply {
	out := make(chan reply)
	go func() {
		defer close(out)
		var pending []byte
		buf := make([]byte, 256)
		for {
			n, err := s.r.Read(buf)
			pending = append(pending, buf[:n]...)
			for {
				i := bytes.IndexByte(pending, '\n')
				if i < 0 {
					break
				}
				line := string(pending[:i])
				pending = pending[i+1:]
				select {
				case out <- reply{line: line}:
				case <-stop:
					return
				}
			}
			if err != nil {
				select {
				case out <- reply{line: string(pending), err: err}:
				case <-stop:
				}
				return
			}
			select {
			case <-stop:
				return
			default:
			}
		}
	}()
	return out
}

func waitOK(ctx context.Context, replies <-chan reply, logger *log.Logger) error {
	for {
		var r reply
		var ok bool
		select {
		case <-ctx.Done():
			return ctx.Err()
		case r, ok = <-replies:
		}
		if !ok {
			return fmt.Errorf("%w: connection closed before ok", ErrPrinter)
		}

		line := strings.TrimSpace(r.line)
		switch {
		case strings.HasPrefix(line, "ok"):
			return nil
		case strings.HasPrefix(line, "Error"), strings.HasPrefix(line, "!!"):
			return fmt.Errorf("%w: %s", ErrPrinter, line)
		case line != "":
			// echo:, busy: and temperature reports
			logger.Debug("printer", "reply", line)
		}
		if r.err != nil {
			if errors.Is(r.err, io.EOF) {
				return fmt.Errorf("%w: connection closed before ok", ErrPrinter)
			}
			return r.err
		}
	}
}

// StripComment removes a trailing ';' comment and surrounding space
func StripComment(line string) string {
	if i := strings.IndexByte(line, ';'); i >= 0 {
		line = line[:i]
	}
	return strings.TrimSpace(line)
}
