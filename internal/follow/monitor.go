package follow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// DefaultPollInterval is the time waited between two probes while a
// container is not running.
const DefaultPollInterval = time.Second

// Config holds the options shared by every monitor.
type Config struct {
	// PollInterval is the time waited between two probes while the
	// container is absent.
	PollInterval time.Duration

	// LabelsEnabled prefixes every line with the target alias.
	LabelsEnabled bool

	// SuppressResumedOutput hides, when re-attaching to the same container
	// instance, as many lines as the previous attachment produced. It
	// compensates for runtimes replaying trailing output on attach and is a
	// best-effort heuristic. It never applies to file tailing.
	SuppressResumedOutput bool
}

// DefaultConfig returns the default [Config].
func DefaultConfig() Config {
	return Config{
		PollInterval:  DefaultPollInterval,
		LabelsEnabled: true,
	}
}

// Session is the mutable state of a [Monitor]. It is owned by the monitor
// loop and never shared.
type Session struct {
	// ContainerID is the identifier of the last instance found running.
	// Empty until the container is first found.
	ContainerID string

	// Waiting is set once the "waiting" notice of the current absence
	// episode has been emitted.
	Waiting bool

	// LinesSeen counts the lines produced by the latest successful
	// attachment, hidden ones included. It is reset when an attachment
	// opens, so a failed attachment keeps the previous count for the next
	// re-attachment to the same container.
	LinesSeen int
}

// Monitor follows the output of one target, re-attaching every time the
// container comes back.
type Monitor struct {
	target  Target
	runtime Runtime
	out     *LineWriter
	logger  *slog.Logger
	cfg     Config

	status    *StatusBoard
	statusKey int
	state     State
	since     time.Time

	session      Session
	lastProbeErr string
}

// NewMonitor creates a [Monitor] relaying the output of target to out.
func NewMonitor(
	target Target,
	runtime Runtime,
	out *LineWriter,
	logger *slog.Logger,
	cfg Config,
) *Monitor {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	return &Monitor{
		target:  target,
		runtime: runtime,
		out:     out,
		logger: logger.With(
			slog.String("alias", target.Label()),
			slog.String("containerName", target.Name),
		),
		cfg: cfg,
	}
}

// Session returns a copy of the monitor's session.
func (m *Monitor) Session() Session {
	return m.session
}

// Run probes the container and relays its output until ctx is cancelled.
// A container that is not running is waited for indefinitely. Run returns
// nil once ctx is cancelled and an error only if the output cannot be
// written.
func (m *Monitor) Run(ctx context.Context) error {
	m.publish(StateDiscovering)

	for ctx.Err() == nil {
		id := m.probe(ctx)
		if ctx.Err() != nil {
			break
		}

		if id == "" {
			if !m.session.Waiting {
				m.session.Waiting = true
				m.logger.Warn("Waiting for container to become active")
			}
			if !m.sleep(ctx) {
				break
			}
			continue
		}

		skip := m.discovered(id)

		err := m.attach(ctx, skip)
		m.publish(StateDiscovering)
		if err == nil || ctx.Err() != nil {
			// The stream ended: probe again right away.
			continue
		}

		if werr := (*writeError)(nil); errors.As(err, &werr) {
			return werr.err
		}

		m.logger.Error(
			"Attach failed",
			slog.Any("error", err),
			slog.String("containerId", ShortID(id)),
		)
		if !m.sleep(ctx) {
			break
		}
	}

	return nil
}

// probe returns the running container identifier, or an empty string if
// the container is absent or the runtime could not be queried.
func (m *Monitor) probe(ctx context.Context) string {
	id, err := m.runtime.ProbeContainer(ctx, m.target.Name)
	if err != nil {
		if ctx.Err() != nil {
			return ""
		}
		// Only report a failure once until it changes or recovers.
		if msg := err.Error(); msg != m.lastProbeErr {
			m.lastProbeErr = msg
			m.logger.Warn("Probe failed", slog.Any("error", err))
		} else {
			m.logger.Debug("Probe failed", slog.Any("error", err))
		}
		return ""
	}

	m.lastProbeErr = ""
	return id
}

// discovered records that the container runs as id, emits the matching
// notice and returns the number of lines to hide on the next attachment.
func (m *Monitor) discovered(id string) int {
	prev := m.session.ContainerID
	m.session.Waiting = false
	m.session.ContainerID = id

	skip := 0
	switch {
	case prev == "":
		if m.target.TailsFiles() {
			m.logger.Info(
				"Tailing files in container",
				slog.Any("files", m.target.Files),
				slog.String("containerId", ShortID(id)),
			)
		} else {
			m.logger.Info("Following container", slog.String("containerId", ShortID(id)))
		}

	case prev == id:
		m.logger.Info("Re-connected to the same container", slog.String("containerId", ShortID(id)))
		if m.cfg.SuppressResumedOutput && !m.target.TailsFiles() {
			skip = m.session.LinesSeen
		}

	default:
		m.logger.Info(
			"Container identity changed",
			slog.String("previousId", ShortID(prev)),
			slog.String("containerId", ShortID(id)),
		)
	}

	return skip
}

// attach relays the container output until the attachment ends, hiding
// the first skip lines.
func (m *Monitor) attach(ctx context.Context, skip int) error {
	rc, err := m.runtime.FollowContainer(ctx, Query{
		ContainerName: m.target.Name,
		Files:         m.target.Files,
	})
	if err != nil {
		return fmt.Errorf("follow container: %w", err)
	}
	defer rc.Close()

	m.session.LinesSeen = 0
	m.publish(StateAttached)

	if skip > 0 {
		m.logger.Debug("Hiding output already displayed", slog.Int("lines", skip))
	}

	for line, err := range Lines(rc) {
		if err != nil {
			if ctx.Err() == nil {
				m.logger.Debug("Stream interrupted", slog.Any("error", err))
			}
			break
		}

		m.session.LinesSeen++
		if m.session.LinesSeen <= skip {
			continue
		}
		if err := m.out.WriteLine(line); err != nil {
			return &writeError{err}
		}
		m.publish(StateAttached)
	}

	m.logger.Debug("Stream ended", slog.Int("lines", m.session.LinesSeen))
	return nil
}

func (m *Monitor) sleep(ctx context.Context) bool {
	t := time.NewTimer(m.cfg.PollInterval)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (m *Monitor) publish(state State) {
	if m.status == nil {
		return
	}
	if state != m.state {
		m.state = state
		m.since = time.Now()
	}
	m.status.publish(m.statusKey, TargetStatus{
		Alias:       m.target.Label(),
		Name:        m.target.Name,
		Files:       m.target.Files,
		State:       state,
		ContainerID: m.session.ContainerID,
		LinesSeen:   m.session.LinesSeen,
		Since:       m.since,
	})
}

// writeError reports that the output sink rejected a line.
type writeError struct {
	err error
}

func (e *writeError) Error() string {
	return e.err.Error()
}

func (e *writeError) Unwrap() error {
	return e.err
}
