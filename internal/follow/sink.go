package follow

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// LabelStyler decorates a padded label before it is written, e.g. to
// colorize it. The index identifies the target the label belongs to.
type LabelStyler func(index int, label string) string

// Sink serializes line writes from several monitors onto one writer.
// Lines from different targets may interleave but each line is written
// with a single call to the underlying writer.
type Sink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewSink returns a [Sink] writing to w.
func NewSink(w io.Writer) *Sink {
	return &Sink{w: w}
}

// Writer returns a [LineWriter] prefixing every line with prefix.
// An empty prefix relays lines unchanged.
func (s *Sink) Writer(prefix string) *LineWriter {
	return &LineWriter{sink: s, prefix: []byte(prefix)}
}

// LabelPrefix formats the prefix for label. Labels are left-aligned: the
// padding goes after the label, up to width, so that the separators of all
// targets line up.
func LabelPrefix(label string, width int) string {
	pad := max(width-len(label), 0)
	return label + strings.Repeat(" ", pad) + " | "
}

// LineWriter writes lines of one target to a [Sink].
type LineWriter struct {
	sink   *Sink
	prefix []byte
	buf    []byte
}

// WriteLine writes line atomically with the writer's prefix. If a prefix is
// set and line does not end with a newline, one is added so the next
// labeled line starts on its own row.
func (lw *LineWriter) WriteLine(line []byte) error {
	lw.buf = append(lw.buf[:0], lw.prefix...)
	lw.buf = append(lw.buf, line...)
	if len(lw.prefix) > 0 && (len(line) == 0 || line[len(line)-1] != '\n') {
		lw.buf = append(lw.buf, '\n')
	}

	lw.sink.mu.Lock()
	defer lw.sink.mu.Unlock()

	if _, err := lw.sink.w.Write(lw.buf); err != nil {
		return fmt.Errorf("write line: %w", err)
	}
	return nil
}
