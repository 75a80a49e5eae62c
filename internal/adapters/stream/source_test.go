package stream

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/ellieayla/logstash-output-loginsight/internal/domain"
	"github.com/ellieayla/logstash-output-loginsight/pkg/event"
	"github.com/ellieayla/logstash-output-loginsight/pkg/log"
)

type recordingSink struct {
	mu       sync.Mutex
	messages []string
	err      error
}

func (s *recordingSink) Receive(ctx context.Context, ev *event.Event) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	msg, _ := ev.Get(event.MessageKey)
	s.messages = append(s.messages, event.Text(msg))
	return nil
}

const input = `{"@timestamp":"2024-01-01T00:00:00Z","message":"one"}

{"message":"two"}
garbage
{"message":"three","nested":{"a":1}}
`

func TestSource_Run(t *testing.T) {
	sink := &recordingSink{}
	src := NewSource("stdin", strings.NewReader(input), log.NewNoopLogger())

	if err := src.Run(context.Background(), sink); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := []string{"one", "two", "three"}
	if strings.Join(sink.messages, ",") != strings.Join(want, ",") {
		t.Errorf("messages = %v, want %v", sink.messages, want)
	}
	if src.Name() != "stdin" {
		t.Errorf("Name() = %s", src.Name())
	}
	if err := src.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestSource_Run_StopsOnClosedSink(t *testing.T) {
	src := NewSource("stdin", strings.NewReader(input), log.NewNoopLogger())
	err := src.Run(context.Background(), &recordingSink{err: domain.ErrClosed})
	if !errors.Is(err, domain.ErrClosed) {
		t.Errorf("Run() error = %v, want ErrClosed", err)
	}
}

func TestSource_Run_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := NewSource("stdin", strings.NewReader(input), log.NewNoopLogger())
	if err := src.Run(ctx, &recordingSink{}); !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
}

func TestSource_Run_SkipsOversizedLine(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "oversized line between events",
			input: "{\"message\":\"before\"}\n{\"message\":\"" + strings.Repeat("x", MaxLineSize) + "\"}\n{\"message\":\"after\"}\n",
			want:  []string{"before", "after"},
		},
		{
			name:  "oversized final line without newline",
			input: "{\"message\":\"before\"}\n" + strings.Repeat("x", MaxLineSize+1),
			want:  []string{"before"},
		},
		{
			name:  "final line without newline",
			input: "{\"message\":\"one\"}\r\n{\"message\":\"two\"}",
			want:  []string{"one", "two"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &recordingSink{}
			src := NewSource("stdin", strings.NewReader(tt.input), log.NewNoopLogger())
			if err := src.Run(context.Background(), sink); err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if strings.Join(sink.messages, ",") != strings.Join(tt.want, ",") {
				t.Errorf("messages = %v, want %v", sink.messages, tt.want)
			}
		})
	}
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	if err := os.WriteFile(path, []byte(input), 0o600); err != nil {
		t.Fatal(err)
	}

	src, err := OpenFile(path, log.NewNoopLogger())
	if err != nil {
		t.Fatalf("OpenFile() error = %v", err)
	}
	defer src.Close()

	sink := &recordingSink{}
	if err := src.Run(context.Background(), sink); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(sink.messages) != 3 {
		t.Errorf("got %d messages, want 3", len(sink.messages))
	}
	if !strings.HasPrefix(src.Name(), "file:") {
		t.Errorf("Name() = %s", src.Name())
	}

	if _, err := OpenFile(filepath.Join(t.TempDir(), "missing"), log.NewNoopLogger()); err == nil {
		t.Error("OpenFile() on missing file error = nil")
	}
}
