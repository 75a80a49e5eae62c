// Package stream reads newline-delimited JSON events from a reader.
package stream

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ellieayla/logstash-output-loginsight/internal/adapters/ingest"
	"github.com/ellieayla/logstash-output-loginsight/internal/ports"
)

// MaxLineSize is the longest accepted line. Longer lines are skipped.
const MaxLineSize = 1 << 20

// Source implements ports.Source over an io.Reader, one JSON object per line.
type Source struct {
	name   string
	r      io.Reader
	closer io.Closer
	logger ports.Logger
}

// NewSource reads from r. Close does not close r.
func NewSource(name string, r io.Reader, logger ports.Logger) *Source {
	return &Source{name: name, r: r, logger: logger}
}

// OpenFile reads from the file at path.
func OpenFile(path string, logger ports.Logger) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	return &Source{name: "file:" + path, r: f, closer: f, logger: logger}, nil
}

// Name identifies the source in logs.
func (s *Source) Name() string { return s.name }

// Run forwards every line to sink and returns nil at end of input.
func (s *Source) Run(ctx context.Context, sink ports.Sink) error {
	h := ingest.NewHandler(s.name, sink, s.logger)

	lr := &lineReader{r: bufio.NewReaderSize(s.r, 64<<10)}
	for {
		line, tooLong, err := lr.next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read %s: %w", s.name, err)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if tooLong {
			s.logger.Warn("skipping oversized line",
				ports.String("source", s.name),
				ports.Int("limit", MaxLineSize),
			)
			continue
		}
		if err := h.Handle(ctx, line); err != nil {
			return err
		}
	}
}

// lineReader splits input on '\n' without failing on long lines.
type lineReader struct {
	r   *bufio.Reader
	buf []byte
}

// next returns the next line without its terminator. The slice is only
// valid until the following call. A line over MaxLineSize is consumed and
// reported with tooLong set.
func (lr *lineReader) next() (line []byte, tooLong bool, err error) {
	lr.buf = lr.buf[:0]
	for {
		chunk, err := lr.r.ReadSlice('\n')
		if err != nil && !errors.Is(err, bufio.ErrBufferFull) && !errors.Is(err, io.EOF) {
			return nil, false, err
		}
		if err == nil {
			chunk = chunk[:len(chunk)-1]
		}
		if !tooLong {
			if len(lr.buf)+len(chunk) > MaxLineSize {
				tooLong = true
				lr.buf = lr.buf[:0]
			} else {
				lr.buf = append(lr.buf, chunk...)
			}
		}

		switch {
		case err == nil:
			return bytes.TrimSuffix(lr.buf, []byte("\r")), tooLong, nil
		case errors.Is(err, io.EOF):
			if len(lr.buf) == 0 && !tooLong {
				return nil, false, io.EOF
			}
			return bytes.TrimSuffix(lr.buf, []byte("\r")), tooLong, nil
		}
	}
}

// Close closes the underlying file, if the source opened one.
func (s *Source) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}
