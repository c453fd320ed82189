package follow

import (
	"fmt"
	"strings"
)

// Target is a container the monitor is instructed to follow.
type Target struct {
	// Name is the container's canonical name.
	Name string

	// Alias is the label displayed in front of each line. Defaults to Name.
	Alias string

	// Files lists paths to tail inside the container. When empty, the
	// container's primary log stream is followed instead.
	Files []string
}

// ParseTarget parses a target specifier of the form
//
//	[alias/]name[:file1:file2...]
//
// The alias defaults to the container name and empty file segments are
// ignored. It returns an error wrapping [ErrInvalidTarget] if the name is
// missing.
func ParseTarget(spec string) (Target, error) {
	head, files, _ := strings.Cut(spec, ":")

	alias, name, found := strings.Cut(head, "/")
	if !found {
		name = alias
	}
	if name == "" {
		return Target{}, fmt.Errorf("%w: %q has no container name", ErrInvalidTarget, spec)
	}
	if alias == "" {
		alias = name
	}

	t := Target{Name: name, Alias: alias}
	if files != "" {
		for f := range strings.SplitSeq(files, ":") {
			if f != "" {
				t.Files = append(t.Files, f)
			}
		}
	}
	return t, nil
}

// ParseTargets parses every specifier with [ParseTarget].
func ParseTargets(specs []string) ([]Target, error) {
	targets := make([]Target, 0, len(specs))
	for _, spec := range specs {
		t, err := ParseTarget(spec)
		if err != nil {
			return nil, err
		}
		targets = append(targets, t)
	}
	return targets, nil
}

// TailsFiles reports whether the target follows files inside the container
// rather than the container's log stream.
func (t Target) TailsFiles() bool {
	return len(t.Files) > 0
}

// Label returns the display label of the target.
func (t Target) Label() string {
	if t.Alias != "" {
		return t.Alias
	}
	return t.Name
}

// LabelWidth returns the length of the longest label among targets.
func LabelWidth(targets []Target) int {
	width := 0
	for _, t := range targets {
		width = max(width, len(t.Label()))
	}
	return width
}
