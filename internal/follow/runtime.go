package follow

import (
	"context"
	"io"
)

// Runtime provides access to the container runtime's control plane.
type Runtime interface {
	// ProbeContainer returns the full identifier of the running container
	// named exactly name. It returns an empty string and a nil error if no
	// such container is running.
	ProbeContainer(ctx context.Context, name string) (string, error)

	// FollowContainer attaches to the output of a running container and
	// returns it as a stream. The stream ends when the attachment
	// terminates, e.g. when the container stops. stdout and stderr are
	// merged into the same stream and no output emitted before the
	// attachment is replayed.
	FollowContainer(ctx context.Context, query Query) (io.ReadCloser, error)
}

// Query represents the parameters of an attachment.
type Query struct {
	// ContainerName is the name of the container to attach to.
	ContainerName string

	// Files, if not empty, are tailed inside the container instead of
	// following the container's log stream.
	Files []string
}

// TailCommand returns the command executed inside a container to follow
// files starting from their current end.
func TailCommand(files []string) []string {
	return append([]string{"tail", "-q", "-n", "0", "-F"}, files...)
}

// ShortID truncates a container identifier to the 12 characters the
// runtimes display.
func ShortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
