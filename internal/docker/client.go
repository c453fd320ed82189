package docker

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/containerd/errdefs"
	"github.com/moby/moby/api/pkg/stdcopy"
	"github.com/moby/moby/client"

	"github.com/matthieugusmini/docker-follow/internal/follow"
)

// Client is an adapter for the Docker Engine API client to our domain.
type Client struct {
	dockerClient *client.Client
}

var _ follow.Runtime = (*Client)(nil)

// NewClient returns a new [Client] wrapping the given Docker Engine API client.
func NewClient(dockerClient *client.Client) *Client {
	return &Client{dockerClient}
}

// ProbeContainer returns the full ID of the running container named
// exactly name (docker ps --no-trunc --filter name=^/name$), or an empty
// string if it is not running.
func (c *Client) ProbeContainer(ctx context.Context, name string) (string, error) {
	// The name filter is a regular expression matched against the
	// container names, which are stored as paths for historical reasons.
	filters := make(client.Filters).
		Add("name", "^/"+regexp.QuoteMeta(name)+"$").
		Add("status", "running")

	res, err := c.dockerClient.ContainerList(ctx, client.ContainerListOptions{Filters: filters})
	if err != nil {
		return "", fmt.Errorf("list Docker containers: %w", err)
	}

	for _, ctr := range res.Items {
		for _, n := range ctr.Names {
			if strings.TrimPrefix(n, "/") == name {
				return ctr.ID, nil
			}
		}
	}

	return "", nil
}

// FollowContainer returns the live output of the specified container
// starting from now. Without files it follows the container logs
// (docker logs --follow --tail 0), otherwise it tails the files inside the
// container. stdout and stderr are merged into the returned stream.
// If the container cannot be found it returns a [*follow.ContainerNotFoundError].
func (c *Client) FollowContainer(ctx context.Context, query follow.Query) (io.ReadCloser, error) {
	if len(query.Files) > 0 {
		return c.tailFiles(ctx, query)
	}
	return c.followLogs(ctx, query.ContainerName)
}

func (c *Client) followLogs(ctx context.Context, containerName string) (io.ReadCloser, error) {
	// If it is a TTY container, the log stream doesn't need to be demultiplexed.
	isTTY, err := c.isTTY(ctx, containerName)
	if err != nil {
		return nil, fmt.Errorf("check if tty container: %w", err)
	}

	r, err := c.dockerClient.ContainerLogs(ctx, containerName, client.ContainerLogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Follow:     true,
		Tail:       "0",
	})
	if err != nil {
		return nil, toDomainError(containerName, fmt.Errorf("get Docker container logs: %w", err))
	}

	return mergeStreams(r, isTTY), nil
}

func (c *Client) tailFiles(ctx context.Context, query follow.Query) (io.ReadCloser, error) {
	exec, err := c.dockerClient.ExecCreate(ctx, query.ContainerName, client.ExecCreateOptions{
		AttachStdout: true,
		AttachStderr: true,
		Cmd:          follow.TailCommand(query.Files),
	})
	if err != nil {
		return nil, toDomainError(query.ContainerName, fmt.Errorf("create Docker exec: %w", err))
	}

	attach, err := c.dockerClient.ExecAttach(ctx, exec.ID, client.ExecAttachOptions{})
	if err != nil {
		return nil, toDomainError(query.ContainerName, fmt.Errorf("attach Docker exec: %w", err))
	}

	// Unlike the logs endpoint, the hijacked connection is not tied to ctx.
	stop := context.AfterFunc(ctx, attach.Close)

	return mergeStreams(&hijackedReadCloser{resp: attach.HijackedResponse, stop: stop}, false), nil
}

func (c *Client) isTTY(ctx context.Context, containerName string) (bool, error) {
	res, err := c.dockerClient.ContainerInspect(ctx, containerName, client.ContainerInspectOptions{})
	if err != nil {
		return false, toDomainError(containerName, fmt.Errorf("inspect Docker container: %w", err))
	}

	if res.Container.Config == nil {
		return false, fmt.Errorf("container %s has no config", containerName)
	}

	return res.Container.Config.Tty, nil
}

// mergeStreams returns a stream carrying both stdout and stderr of r.
// The stream format returned by the API depends on whether a TTY is
// allocated: a TTY stream is raw, otherwise stdout and stderr are
// multiplexed.
func mergeStreams(r io.ReadCloser, isTTY bool) io.ReadCloser {
	if isTTY {
		return r
	}

	pr, pw := io.Pipe()

	go func() {
		defer r.Close()

		// StdCopy writes frames one at a time so both streams can share the pipe.
		_, err := stdcopy.StdCopy(pw, pw, r)
		_ = pw.CloseWithError(err)
	}()

	return &pipeReadCloser{PipeReader: pr, src: r}
}

// pipeReadCloser closes the source stream along with the pipe so that the
// copying goroutine is released even if the reader stops early.
type pipeReadCloser struct {
	*io.PipeReader
	src io.Closer
}

func (p *pipeReadCloser) Close() error {
	_ = p.src.Close()
	return p.PipeReader.Close()
}

type hijackedReadCloser struct {
	resp client.HijackedResponse
	stop func() bool
}

func (h *hijackedReadCloser) Read(p []byte) (int, error) {
	return h.resp.Reader.Read(p)
}

func (h *hijackedReadCloser) Close() error {
	h.stop()
	h.resp.Close()
	return nil
}

func toDomainError(containerName string, err error) error {
	if errdefs.IsNotFound(err) {
		return &follow.ContainerNotFoundError{Name: containerName, Err: err}
	}
	return err
}
