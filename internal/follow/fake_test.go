package follow_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/matthieugusmini/docker-follow/internal/follow"
)

type probeResult struct {
	id  string
	err error
}

// fakeRuntime replays scripted probe results, attachment errors and
// streams per container name. A nil attachment error lets the attachment
// succeed. Once a script is exhausted the container is reported absent and
// attachments produce no output.
type fakeRuntime struct {
	mu         sync.Mutex
	probes     map[string][]probeResult
	streams    map[string][]string
	readers    map[string]io.ReadCloser
	followErrs map[string][]error
	probeTimes map[string][]time.Time
	queries    []follow.Query
}

func newFakeRuntime() *fakeRuntime {
	return &fakeRuntime{
		probes:     make(map[string][]probeResult),
		streams:    make(map[string][]string),
		readers:    make(map[string]io.ReadCloser),
		followErrs: make(map[string][]error),
		probeTimes: make(map[string][]time.Time),
	}
}

func (f *fakeRuntime) ProbeContainer(ctx context.Context, name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.probeTimes[name] = append(f.probeTimes[name], time.Now())

	results := f.probes[name]
	if len(results) == 0 {
		return "", nil
	}
	f.probes[name] = results[1:]
	return results[0].id, results[0].err
}

func (f *fakeRuntime) FollowContainer(ctx context.Context, query follow.Query) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.queries = append(f.queries, query)

	if errs := f.followErrs[query.ContainerName]; len(errs) > 0 {
		f.followErrs[query.ContainerName] = errs[1:]
		if errs[0] != nil {
			return nil, errs[0]
		}
	}

	if rc, ok := f.readers[query.ContainerName]; ok {
		delete(f.readers, query.ContainerName)
		return rc, nil
	}

	streams := f.streams[query.ContainerName]
	if len(streams) == 0 {
		return io.NopCloser(strings.NewReader("")), nil
	}
	f.streams[query.ContainerName] = streams[1:]
	return io.NopCloser(strings.NewReader(streams[0])), nil
}

func (f *fakeRuntime) getProbeTimes(name string) []time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]time.Time(nil), f.probeTimes[name]...)
}

func (f *fakeRuntime) getQueries() []follow.Query {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]follow.Query(nil), f.queries...)
}

// syncBuffer is a strings.Builder safe for concurrent use.
type syncBuffer struct {
	mu  sync.Mutex
	buf strings.Builder
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) {
	return 0, errors.New("broken pipe")
}

type logRecord struct {
	level   slog.Level
	message string
	attrs   map[string]string
}

type logRecords struct {
	mu      sync.Mutex
	records []logRecord
}

func (l *logRecords) withMessage(msg string) []logRecord {
	l.mu.Lock()
	defer l.mu.Unlock()

	var res []logRecord
	for _, r := range l.records {
		if r.message == msg {
			res = append(res, r)
		}
	}
	return res
}

func (l *logRecords) count(msg string) int {
	return len(l.withMessage(msg))
}

// recordHandler is a slog.Handler keeping every record in memory.
type recordHandler struct {
	records *logRecords
	attrs   []slog.Attr
}

func newRecordingLogger() (*slog.Logger, *logRecords) {
	records := &logRecords{}
	return slog.New(&recordHandler{records: records}), records
}

func (h *recordHandler) Enabled(context.Context, slog.Level) bool {
	return true
}

func (h *recordHandler) Handle(_ context.Context, r slog.Record) error {
	rec := logRecord{
		level:   r.Level,
		message: r.Message,
		attrs:   make(map[string]string),
	}
	for _, a := range h.attrs {
		rec.attrs[a.Key] = a.Value.String()
	}
	r.Attrs(func(a slog.Attr) bool {
		rec.attrs[a.Key] = a.Value.String()
		return true
	})

	h.records.mu.Lock()
	h.records.records = append(h.records.records, rec)
	h.records.mu.Unlock()
	return nil
}

func (h *recordHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &recordHandler{
		records: h.records,
		attrs:   append(append([]slog.Attr(nil), h.attrs...), attrs...),
	}
}

func (h *recordHandler) WithGroup(string) slog.Handler {
	return h
}
