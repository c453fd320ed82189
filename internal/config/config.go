// Package config loads options and targets from a YAML file.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/matthieugusmini/docker-follow/internal/follow"
)

// File is the content of a configuration file. Unset fields keep their
// default value.
//
//	interval: 2
//	labels: true
//	suppressResumed: false
//	backend: cli
//	dockerBin: podman
//	statusAddr: 127.0.0.1:8080
//	targets:
//	  - web/frontend
//	  - name: backend
//	    alias: api
//	    files: [/var/log/app.log]
type File struct {
	// Interval is the number of seconds between two checks while a
	// container is absent.
	Interval *int `yaml:"interval"`

	Labels          *bool `yaml:"labels"`
	Colors          *bool `yaml:"colors"`
	SuppressResumed *bool `yaml:"suppressResumed"`
	Quiet           *bool `yaml:"quiet"`

	Backend    string `yaml:"backend"`
	DockerBin  string `yaml:"dockerBin"`
	StatusAddr string `yaml:"statusAddr"`

	Targets []Target `yaml:"targets"`
}

// Target is a target entry, written either as a target specifier string
// or as a mapping.
type Target struct {
	follow.Target
}

// targetMapping is the mapping form of a target entry.
type targetMapping struct {
	Name  string   `yaml:"name"`
	Alias string   `yaml:"alias"`
	Files []string `yaml:"files"`
}

// UnmarshalYAML implements [yaml.Unmarshaler].
func (t *Target) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		var spec string
		if err := node.Decode(&spec); err != nil {
			return err
		}
		parsed, err := follow.ParseTarget(spec)
		if err != nil {
			return fmt.Errorf("line %d: %w", node.Line, err)
		}
		t.Target = parsed
		return nil
	}

	var raw targetMapping
	if err := node.Decode(&raw); err != nil {
		return err
	}
	if raw.Name == "" {
		return fmt.Errorf("line %d: %w: missing name", node.Line, follow.ErrInvalidTarget)
	}
	if raw.Alias == "" {
		raw.Alias = raw.Name
	}
	t.Target = follow.Target{Name: raw.Name, Alias: raw.Alias, Files: raw.Files}
	return nil
}

// Load reads the configuration file at path.
func Load(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config file: %w", err)
	}
	defer f.Close()

	cfg, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode config file %s: %w", path, err)
	}
	return cfg, nil
}

// Decode parses a configuration from r. Unknown fields are rejected.
func Decode(r io.Reader) (*File, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var cfg File
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if cfg.Interval != nil && *cfg.Interval <= 0 {
		return nil, fmt.Errorf("interval must be positive, got %d", *cfg.Interval)
	}
	return &cfg, nil
}

// Apply overrides the fields of cfg set in the file.
func (f *File) Apply(cfg *follow.Config) {
	if f.Interval != nil {
		cfg.PollInterval = time.Duration(*f.Interval) * time.Second
	}
	if f.Labels != nil {
		cfg.LabelsEnabled = *f.Labels
	}
	if f.SuppressResumed != nil {
		cfg.SuppressResumedOutput = *f.SuppressResumed
	}
}

// FollowTargets returns the targets declared in the file.
func (f *File) FollowTargets() []follow.Target {
	targets := make([]follow.Target, len(f.Targets))
	for i, t := range f.Targets {
		targets[i] = t.Target
	}
	return targets
}
