package process

import (
	"context"
	"fmt"
	"io"
	"os/exec"

	"github.com/aretw0/suitemux/pkg/ports"
	"github.com/aretw0/suitemux/pkg/wire"
)

// Suite is a local Runnable backed by a program that writes wire records on
// its stdout. The program's own RunBegin carries the total.
type Suite struct {
	*wire.Stream
	loader *Loader
	name   string
	args   map[string]string
}

// Suite returns the registered program name as a local source.
func (l *Loader) Suite(name string, args map[string]string) (*Suite, error) {
	if _, ok := l.lookup(name); !ok {
		return nil, fmt.Errorf("process %q not registered", name)
	}
	return &Suite{
		Stream: wire.NewStream(wire.WithLogger(l.logger.With("process", name))),
		loader: l,
		name:   name,
		args:   args,
	}, nil
}

// Run spawns the program and relays its records until RunEnd. A program that
// exits early leaves a failing test in its place.
func (s *Suite) Run(ctx context.Context) error {
	proc, _ := s.loader.lookup(s.name)
	cmd := exec.CommandContext(ctx, proc.Command, proc.Args...)
	cmd.Dir = s.loader.baseDir
	cmd.Stderr = s.loader.stderr
	env := cmd.Environ()
	for k, v := range proc.Env {
		env = append(env, k+"="+v)
	}
	for k, v := range s.args {
		env = append(env, EnvArgPrefix+envKey(k)+"="+v)
	}
	cmd.Env = env

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", s.name, err)
	}

	// Connected records are not events and are skipped by the stream.
	consumeErr := s.Consume(ctx, wire.NewDecoder(stdout))
	_, _ = io.Copy(io.Discard, stdout)
	if err := cmd.Wait(); err != nil && consumeErr == nil {
		s.loader.logger.Warn("local process exited", "process", s.name, "error", err)
	}
	return nil
}

var _ ports.Runnable = (*Suite)(nil)
