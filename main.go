package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"slices"
	"syscall"
	"time"

	"github.com/moby/moby/client"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/matthieugusmini/docker-follow/internal/api"
	"github.com/matthieugusmini/docker-follow/internal/config"
	"github.com/matthieugusmini/docker-follow/internal/docker"
	"github.com/matthieugusmini/docker-follow/internal/dockercli"
	"github.com/matthieugusmini/docker-follow/internal/follow"
	internalhttp "github.com/matthieugusmini/docker-follow/internal/http"
	"github.com/matthieugusmini/docker-follow/internal/label"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = ""

const (
	backendAPI = "api"
	backendCLI = "cli"

	shutdownTimeout = 5 * time.Second
)

func main() {
	ctx := context.Background()
	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	opts, err := parseOptions(args, stderr)
	if errors.Is(err, pflag.ErrHelp) {
		return nil
	} else if err != nil {
		return err
	}

	if opts.version {
		fmt.Fprintln(stdout, "docker-follow", buildVersion())
		return nil
	}

	logger := newLogger(stderr, opts.quiet)

	rt, closeRuntime, err := newRuntime(opts)
	if err != nil {
		return err
	}
	defer closeRuntime()

	board := follow.NewStatusBoard()
	supervisorOpts := follow.SupervisorOptions{Status: board}
	if opts.colors {
		supervisorOpts.LabelStyler = label.NewPalette(stdout).Style
	}

	supervisor := follow.NewSupervisor(
		rt,
		follow.NewSink(stdout),
		logger,
		opts.follow,
		opts.targets,
		supervisorOpts,
	)

	g, ctx := errgroup.WithContext(ctx)

	if opts.statusAddr != "" {
		srv := internalhttp.NewServer(ctx, opts.statusAddr, api.NewHandler(board))

		g.Go(func() error {
			logger.Info("Status server listening", slog.String("addr", opts.statusAddr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("serve status: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	g.Go(func() error {
		return supervisor.Run(ctx)
	})

	return g.Wait()
}

type options struct {
	follow     follow.Config
	targets    []follow.Target
	colors     bool
	quiet      bool
	backend    string
	dockerBin  string
	statusAddr string
	version    bool
}

func parseOptions(args []string, output io.Writer) (*options, error) {
	var (
		interval   int
		all        bool
		suppress   bool
		noLabels   bool
		noColor    bool
		configPath string
		opts       = options{
			follow:  follow.DefaultConfig(),
			colors:  true,
			backend: backendAPI,
		}
	)

	fs := pflag.NewFlagSet("docker-follow", pflag.ContinueOnError)
	fs.SetOutput(output)
	fs.SortFlags = false
	fs.Usage = func() {
		fmt.Fprintf(output, `Follow docker container logs and survive restarts.

Usage:
  docker-follow [flags] [alias/]container[:file1:file2...] ...

Examples:
  # Follow the logs of a container, waiting for it if it is not running
  docker-follow web

  # Follow two containers, the first one labeled "api"
  docker-follow api/backend-1 worker

  # Tail files inside a container instead of its logs
  docker-follow nginx:/var/log/nginx/access.log:/var/log/nginx/error.log

Flags:
`)
		fs.PrintDefaults()
	}

	fs.IntVarP(&interval, "interval", "i", int(follow.DefaultPollInterval/time.Second), "seconds to wait between checks while a container is not running")
	fs.BoolVarP(&suppress, "suppress-resumed", "s", false, "hide lines already displayed when re-attaching to the same container")
	fs.BoolVarP(&all, "all", "a", false, "never hide output when re-attaching (default)")
	fs.BoolVar(&noLabels, "no-labels", false, "do not prefix lines with the container alias")
	fs.BoolVar(&noColor, "no-color", false, "do not colorize labels")
	fs.BoolVarP(&opts.quiet, "quiet", "q", false, "only log errors")
	fs.StringVar(&opts.backend, "backend", backendAPI, `how to reach the container runtime: "api" (Docker Engine API) or "cli"`)
	fs.StringVar(&opts.dockerBin, "docker-bin", dockercli.DefaultBinary, "container runtime binary used by the cli backend")
	fs.StringVarP(&configPath, "config", "c", "", "YAML file with options and targets")
	fs.StringVar(&opts.statusAddr, "status-addr", "", "serve /healthz and /targets on this address")
	fs.BoolVarP(&opts.version, "version", "v", false, "print the version and exit")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if opts.version {
		return &opts, nil
	}

	if configPath != "" {
		file, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		applyFile(&opts, fs, file)
	}

	if fs.Changed("interval") {
		if interval <= 0 {
			return nil, fmt.Errorf("--interval must be positive, got %d", interval)
		}
		opts.follow.PollInterval = time.Duration(interval) * time.Second
	}
	if all && suppress {
		return nil, errors.New("--all and --suppress-resumed are mutually exclusive")
	}
	if fs.Changed("suppress-resumed") || fs.Changed("all") {
		opts.follow.SuppressResumedOutput = suppress
	}
	if noLabels {
		opts.follow.LabelsEnabled = false
	}
	if noColor {
		opts.colors = false
	}

	if !slices.Contains([]string{backendAPI, backendCLI}, opts.backend) {
		return nil, fmt.Errorf("unknown backend %q", opts.backend)
	}

	targets, err := follow.ParseTargets(fs.Args())
	if err != nil {
		return nil, err
	}
	opts.targets = append(opts.targets, targets...)
	if len(opts.targets) == 0 {
		fs.Usage()
		return nil, errors.New("no container to follow")
	}

	return &opts, nil
}

// applyFile sets the options of file that were not given on the command line.
func applyFile(opts *options, fs *pflag.FlagSet, file *config.File) {
	cfg := opts.follow
	file.Apply(&cfg)
	opts.follow = cfg

	if file.Colors != nil {
		opts.colors = *file.Colors
	}
	if file.Quiet != nil && !fs.Changed("quiet") {
		opts.quiet = *file.Quiet
	}
	if file.Backend != "" && !fs.Changed("backend") {
		opts.backend = file.Backend
	}
	if file.DockerBin != "" && !fs.Changed("docker-bin") {
		opts.dockerBin = file.DockerBin
	}
	if file.StatusAddr != "" && !fs.Changed("status-addr") {
		opts.statusAddr = file.StatusAddr
	}
	opts.targets = append(opts.targets, file.FollowTargets()...)
}

func newRuntime(opts *options) (follow.Runtime, func(), error) {
	if opts.backend == backendCLI {
		return dockercli.NewClient(opts.dockerBin), func() {}, nil
	}

	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, nil, fmt.Errorf("new Docker Engine API client: %w", err)
	}
	return docker.NewClient(cli), func() { _ = cli.Close() }, nil
}

// newLogger returns a text logger when w is a terminal and a JSON logger
// otherwise.
func newLogger(w io.Writer, quiet bool) *slog.Logger {
	options := &slog.HandlerOptions{Level: slog.LevelInfo}
	if quiet {
		options.Level = slog.LevelError
	}

	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return slog.New(slog.NewTextHandler(w, options))
	}
	return slog.New(slog.NewJSONHandler(w, options))
}

func buildVersion() string {
	if version != "" {
		return version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "devel"
}
