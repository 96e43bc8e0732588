package process

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os/exec"
	"sort"
	"strings"
	"sync"

	"github.com/aretw0/suitemux/internal/logging"
	"github.com/aretw0/suitemux/pkg/domain"
	"github.com/aretw0/suitemux/pkg/ports"
	"github.com/aretw0/suitemux/pkg/wire"
)

// Scheme is the location scheme served by the Loader: exec:<name>?key=value.
const Scheme = "exec"

// Environment variables handed to a spawned child.
const (
	EnvHandle    = "SUITEMUX_HANDLE"
	EnvLabel     = "SUITEMUX_LABEL"
	EnvLocation  = "SUITEMUX_LOCATION"
	EnvArgPrefix = "SUITEMUX_ARG_"
)

// Loader implements ports.Loader by spawning programs.
// It follows a strict registry (allow-list): only registered names can be
// started, query values reach the child as environment variables, never as
// command-line flags.
type Loader struct {
	mu       sync.RWMutex
	registry map[string]RegisteredProcess
	baseDir  string
	stderr   io.Writer
	logger   *slog.Logger
}

// RegisteredProcess is an allowed program.
type RegisteredProcess struct {
	Command string
	Args    []string
	Env     map[string]string
}

// LoaderOption configures the Loader.
type LoaderOption func(*Loader)

// WithRegistry populates the allow-list from a loaded config.
func WithRegistry(procs map[string]ProcessConfig) LoaderOption {
	return func(l *Loader) {
		for name, p := range procs {
			l.registry[name] = RegisteredProcess{Command: p.Command, Args: p.Args, Env: p.Environment}
		}
	}
}

// WithBaseDir sets the working directory of spawned programs.
func WithBaseDir(dir string) LoaderOption {
	return func(l *Loader) {
		l.baseDir = dir
	}
}

// WithStderr forwards the standard error of spawned programs to w.
func WithStderr(w io.Writer) LoaderOption {
	return func(l *Loader) {
		l.stderr = w
	}
}

// WithLogger sets a structured logger.
func WithLogger(logger *slog.Logger) LoaderOption {
	return func(l *Loader) {
		l.logger = logger
	}
}

// NewLoader creates a Loader with an empty allow-list.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{
		registry: make(map[string]RegisteredProcess),
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Register adds a trusted program to the allow-list.
func (l *Loader) Register(name string, command string, args ...string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.registry[name] = RegisteredProcess{Command: command, Args: args}
}

// Names lists the registered programs.
func (l *Loader) Names() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	names := make([]string, 0, len(l.registry))
	for name := range l.registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ParseLocation splits an exec: location into the program name and its
// arguments.
func ParseLocation(location string) (string, map[string]string, error) {
	u, err := url.Parse(location)
	if err != nil {
		return "", nil, fmt.Errorf("invalid location %q: %w", location, err)
	}
	if u.Scheme != Scheme {
		return "", nil, fmt.Errorf("%w: %s is not an %s: location", domain.ErrUnknownLocation, location, Scheme)
	}
	name := u.Opaque
	if name == "" {
		name = strings.TrimPrefix(u.Path, "/")
	}
	args := make(map[string]string)
	for k, v := range u.Query() {
		if len(v) > 0 {
			args[k] = v[0]
		}
	}
	return name, args, nil
}

func (l *Loader) lookup(name string) (RegisteredProcess, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	proc, ok := l.registry[name]
	return proc, ok
}

// Load spawns the program named by hs.Location() and attaches its stdout.
// Detaching the returned Instance kills the program.
func (l *Loader) Load(ctx context.Context, hs ports.Handshake) (ports.Instance, error) {
	name, args, err := ParseLocation(hs.Location())
	if err != nil {
		return nil, err
	}
	proc, ok := l.lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: process %q not registered", domain.ErrUnknownLocation, name)
	}

	procCtx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(procCtx, proc.Command, proc.Args...)
	cmd.Dir = l.baseDir
	cmd.Env = append(cmd.Environ(), childEnv(hs, proc.Env, args)...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, err
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if l.stderr != nil {
		cmd.Stderr = io.MultiWriter(&stderr, l.stderr)
	}

	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("start %s: %w", name, err)
	}
	logger := l.logger.With("handle", hs.ID(), "process", name, "pid", cmd.Process.Pid)
	logger.Debug("process started")

	go func() {
		defer cancel()
		attachErr := wire.Attach(procCtx, hs, stdout, wire.WithLogger(logger))
		// Drain what is left so the program is not blocked on a full pipe.
		_, _ = io.Copy(io.Discard, stdout)
		waitErr := cmd.Wait()
		if attachErr != nil {
			logger.Warn("process stream ended", "error", attachErr, "stderr", strings.TrimSpace(stderr.String()))
		}
		if waitErr != nil && procCtx.Err() == nil {
			logger.Warn("process exited", "error", waitErr)
		} else {
			logger.Debug("process exited")
		}
	}()

	return ports.InstanceFunc(func() error {
		cancel()
		return nil
	}), nil
}

// childEnv builds the handshake and argument variables of a child.
func childEnv(hs ports.Handshake, fixed, args map[string]string) []string {
	env := []string{
		EnvHandle + "=" + hs.ID(),
		EnvLabel + "=" + hs.Label(),
		EnvLocation + "=" + hs.Location(),
	}
	for k, v := range fixed {
		env = append(env, k+"="+v)
	}
	for k, v := range args {
		env = append(env, EnvArgPrefix+envKey(k)+"="+v)
	}
	return env
}

// envKey upper-cases k and replaces anything but letters and digits with '_'.
func envKey(k string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r - 'a' + 'A'
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, k)
}

var _ ports.Loader = (*Loader)(nil)
