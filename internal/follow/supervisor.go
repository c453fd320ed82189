package follow

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// SupervisorOptions are optional parameters used to configure
// the behavior of the [Supervisor].
type SupervisorOptions struct {
	// LabelStyler, if set, decorates the label prefix of every target.
	LabelStyler LabelStyler

	// Status, if set, receives the state of every monitor.
	Status *StatusBoard
}

// Supervisor runs one [Monitor] per target, all writing to the same sink.
type Supervisor struct {
	runtime Runtime
	sink    *Sink
	logger  *slog.Logger
	cfg     Config
	targets []Target
	options SupervisorOptions
}

// NewSupervisor creates a new [Supervisor] following targets through
// runtime and writing their output to sink.
func NewSupervisor(
	runtime Runtime,
	sink *Sink,
	logger *slog.Logger,
	cfg Config,
	targets []Target,
	opts SupervisorOptions,
) *Supervisor {
	return &Supervisor{
		runtime: runtime,
		sink:    sink,
		logger:  logger,
		cfg:     cfg,
		targets: targets,
		options: opts,
	}
}

// Run starts monitoring every target and blocks until ctx is cancelled.
// Monitors are independent: a target that never shows up does not affect
// the others. It returns an error only if the output cannot be written.
func (s *Supervisor) Run(ctx context.Context) error {
	if len(s.targets) == 0 {
		return fmt.Errorf("%w: no targets to follow", ErrInvalidTarget)
	}

	width := LabelWidth(s.targets)

	g, ctx := errgroup.WithContext(ctx)
	for i, target := range s.targets {
		m := NewMonitor(target, s.runtime, s.sink.Writer(s.prefix(i, target, width)), s.logger, s.cfg)
		m.status = s.options.Status
		m.statusKey = i

		g.Go(func() error {
			if err := m.Run(ctx); err != nil {
				return fmt.Errorf("monitor %s: %w", target.Label(), err)
			}
			return nil
		})
	}

	err := g.Wait()
	s.logger.Info("Supervisor shutting down...")
	return err
}

func (s *Supervisor) prefix(i int, target Target, width int) string {
	if !s.cfg.LabelsEnabled {
		return ""
	}
	prefix := LabelPrefix(target.Label(), width)
	if s.options.LabelStyler != nil {
		prefix = s.options.LabelStyler(i, prefix)
	}
	return prefix
}
