package follow

import (
	"slices"
	"strings"
	"sync"
	"time"
)

// State is the state of a monitor loop.
type State string

const (
	// StateDiscovering means no running instance of the container is known.
	StateDiscovering State = "discovering"

	// StateAttached means the monitor is relaying the container's output.
	StateAttached State = "attached"
)

// TargetStatus is a snapshot of a monitor's state.
type TargetStatus struct {
	Alias       string    `json:"alias"`
	Name        string    `json:"name"`
	Files       []string  `json:"files,omitempty"`
	State       State     `json:"state"`
	ContainerID string    `json:"containerId,omitempty"`
	LinesSeen   int       `json:"linesSeen"`
	Since       time.Time `json:"since"`
}

// StatusBoard collects the latest status published by each monitor.
// The zero value is ready to use.
type StatusBoard struct {
	mu       sync.Mutex
	statuses map[int]TargetStatus
}

// NewStatusBoard returns an empty [StatusBoard].
func NewStatusBoard() *StatusBoard {
	return &StatusBoard{}
}

func (b *StatusBoard) publish(key int, st TargetStatus) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.statuses == nil {
		b.statuses = make(map[int]TargetStatus)
	}
	b.statuses[key] = st
}

// Snapshot returns the status of every monitor sorted by alias and name.
func (b *StatusBoard) Snapshot() []TargetStatus {
	b.mu.Lock()
	defer b.mu.Unlock()

	res := make([]TargetStatus, 0, len(b.statuses))
	for _, st := range b.statuses {
		res = append(res, st)
	}
	slices.SortFunc(res, func(a, b TargetStatus) int {
		if c := strings.Compare(a.Alias, b.Alias); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	})
	return res
}
