// Package dockercli implements the container runtime adapter on top of the
// runtime's command line (docker, podman or any compatible binary).
package dockercli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"regexp"
	"strings"
	"syscall"
	"time"

	"github.com/matthieugusmini/docker-follow/internal/follow"
)

// DefaultBinary is the runtime command used when none is configured.
const DefaultBinary = "docker"

// killDelay is how long a child is given to exit after SIGTERM before it
// is killed.
const killDelay = 5 * time.Second

// Client runs the container runtime command line to probe and follow
// containers.
type Client struct {
	binary string
}

var _ follow.Runtime = (*Client)(nil)

// NewClient returns a [Client] invoking binary. An empty binary means
// [DefaultBinary].
func NewClient(binary string) *Client {
	if binary == "" {
		binary = DefaultBinary
	}
	return &Client{binary: binary}
}

// ProbeContainer runs "ps --no-trunc" filtered on the container name and
// returns the ID of the container named exactly name, or an empty string if
// it is not running.
func (c *Client) ProbeContainer(ctx context.Context, name string) (string, error) {
	cmd := c.command(ctx,
		"ps", "--no-trunc",
		"--filter", "name=^/"+regexp.QuoteMeta(name)+"$",
		"--format", "{{.ID}} {{.Names}}",
	)

	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return "", fmt.Errorf("run %s ps: %w: %s", c.binary, err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", fmt.Errorf("run %s ps: %w", c.binary, err)
	}

	// Runtimes differ in how strictly they apply the filter, so names are
	// compared again. Names is a comma separated list.
	for line := range strings.Lines(string(out)) {
		id, names, _ := strings.Cut(strings.TrimSpace(line), " ")
		for n := range strings.SplitSeq(names, ",") {
			if strings.TrimPrefix(n, "/") == name {
				return id, nil
			}
		}
	}
	return "", nil
}

// FollowContainer starts "logs --follow --tail 0" for the container, or
// "exec ... tail" when files are requested, and returns its combined
// output. The stream ends when the command exits. Closing the stream
// terminates the command.
func (c *Client) FollowContainer(ctx context.Context, query follow.Query) (io.ReadCloser, error) {
	args := []string{"logs", "--follow", "--tail", "0", query.ContainerName}
	if len(query.Files) > 0 {
		args = append([]string{"exec", query.ContainerName}, follow.TailCommand(query.Files)...)
	}

	ctx, cancel := context.WithCancel(ctx)
	cmd := c.command(ctx, args...)

	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = pw

	if err := cmd.Start(); err != nil {
		cancel()
		_ = pw.Close()
		return nil, fmt.Errorf("start %s %s: %w", c.binary, args[0], err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)

		// Wait returns once the command exited and its output was copied.
		_ = pw.CloseWithError(cmd.Wait())
	}()

	return &process{PipeReader: pr, cancel: cancel, done: done}, nil
}

// command returns a command bound to ctx. Cancelling ctx asks the child
// to terminate with SIGTERM so that the runtime can detach cleanly.
func (c *Client) command(ctx context.Context, args ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, c.binary, args...)
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	cmd.WaitDelay = killDelay
	return cmd
}

// process is the output stream of a running command.
type process struct {
	*io.PipeReader
	cancel context.CancelFunc
	done   <-chan struct{}
}

// Close terminates the command and waits for it to be reaped.
func (p *process) Close() error {
	p.cancel()
	err := p.PipeReader.Close()
	<-p.done
	return err
}
