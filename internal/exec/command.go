// Package exec runs external helper programs whose standard output is the
// result and whose standard error is progress for the user.
package exec

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	execpkg "os/exec"
	"path/filepath"
	"sync"
)

// maxStdout caps how much standard output is kept. The rest is discarded.
const maxStdout = 64 << 10

// Runner runs a helper program.
type Runner interface {
	RunWith(options []Option, args ...string) (*RunResult, error)
}

// RunResult holds the captured standard output of a finished command.
type RunResult struct {
	Stdout []byte
}

// RunConfig configures command execution.
type RunConfig struct {
	Context context.Context
	Env     []string
}

// Option is a functional option for configuring RunConfig.
type Option func(*RunConfig)

// WithContext kills the command when ctx is done.
func WithContext(ctx context.Context) Option {
	return func(o *RunConfig) {
		o.Context = ctx
	}
}

// WithEnv adds "KEY=value" entries to the environment of the command.
func WithEnv(env ...string) Option {
	return func(o *RunConfig) {
		o.Env = append(o.Env, env...)
	}
}

// CommandRunner runs a program found at Path.
type CommandRunner struct {
	Path string
	Name string
}

func NewCommandRunner(path string) *CommandRunner {
	return &CommandRunner{Path: path, Name: filepath.Base(path)}
}

// RunWith runs the command and captures its standard output. Standard
// error lines are printed to stderr behind the command name.
func (r *CommandRunner) RunWith(options []Option, args ...string) (*RunResult, error) {
	config := RunConfig{Context: context.Background()}
	for _, o := range options {
		o(&config)
	}

	cmd := execpkg.CommandContext(config.Context, r.Path, args...) // #nosec: G204
	if len(config.Env) > 0 {
		cmd.Env = append(os.Environ(), config.Env...)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("creating stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("creating stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting %s: %w", r.Name, err)
	}

	// Pipes must be drained before Wait closes them.
	var out bytes.Buffer
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		io.Copy(&out, io.LimitReader(stdout, maxStdout))
		io.Copy(io.Discard, stdout)
	}()
	go func() {
		defer wg.Done()
		streamLines(stderr, r.printCallback())
	}()
	wg.Wait()

	if err := cmd.Wait(); err != nil {
		return nil, fmt.Errorf("running %s: %w", r.Name, err)
	}
	return &RunResult{Stdout: out.Bytes()}, nil
}

// printCallback returns a line handler that prints lines prefixed with the
// command name to stderr. Lines ending in a carriage return are redrawn in
// place.
func (r *CommandRunner) printCallback() func([]byte) {
	lastWasCR := false
	return func(b []byte) {
		if len(b) == 0 {
			return
		}
		switch {
		case b[len(b)-1] == '\r':
			fmt.Fprintf(os.Stderr, "\r%s: %s", r.Name, b[:len(b)-1])
			lastWasCR = true
		case lastWasCR:
			fmt.Fprintf(os.Stderr, "\r%s: %s\n", r.Name, b)
			lastWasCR = false
		default:
			fmt.Fprintf(os.Stderr, "%s: %s\n", r.Name, b)
		}
	}
}

func streamLines(pipe io.Reader, handler func([]byte)) {
	reader := bufio.NewReader(pipe)
	var line bytes.Buffer
	for {
		b, err := reader.ReadByte()
		if err != nil {
			if line.Len() > 0 {
				handler(line.Bytes())
			}
			return
		}
		switch b {
		case '\n':
			handler(line.Bytes())
			line.Reset()
		case '\r':
			handler(append(line.Bytes(), '\r'))
			line.Reset()
		default:
			line.WriteByte(b)
		}
	}
}
