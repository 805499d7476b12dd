package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ErrNotRegistered is returned when a command name is not on the allow-list.
var ErrNotRegistered = errors.New("command not registered")

// Executor runs a named command and returns its standard output.
type Executor interface {
	Run(ctx context.Context, name string, args ...string) (string, error)
}

// CommandConfig declares an allowed command in configuration files.
type CommandConfig struct {
	Name        string            `yaml:"name" json:"name"`
	Command     string            `yaml:"command" json:"command"`
	Args        []string          `yaml:"args" json:"args"`
	Environment map[string]string `yaml:"env" json:"env"`
}

// Runner executes local processes.
// It follows a Strict Registry pattern (Allow-Listing): only registered names run.
type Runner struct {
	registry map[string]RegisteredProcess
	baseDir  string
}

// RegisteredProcess defines an allowed command execution.
type RegisteredProcess struct {
	Command string
	Args    []string // Prepended to call arguments
	Env     []string
}

// RunnerOption configures the runner.
type RunnerOption func(*Runner)

// WithRegistry populates the allow-list from loaded config.
func WithRegistry(cmds []CommandConfig) RunnerOption {
	return func(r *Runner) {
		for _, c := range cmds {
			if c.Name == "" || c.Command == "" {
				continue
			}
			r.Register(c.Name, c.Command, c.Args...)
			for k, v := range c.Environment {
				p := r.registry[c.Name]
				p.Env = append(p.Env, k+"="+v)
				r.registry[c.Name] = p
			}
		}
	}
}

// WithBaseDir sets the working directory for executed processes.
func WithBaseDir(dir string) RunnerOption {
	return func(r *Runner) {
		r.baseDir = dir
	}
}

// NewRunner creates a new Process Runner.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{
		registry: make(map[string]RegisteredProcess),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a trusted command to the allow-list, replacing any previous entry.
func (r *Runner) Register(name string, command string, args ...string) {
	r.registry[name] = RegisteredProcess{
		Command: command,
		Args:    args,
	}
}

// Registered reports whether name is on the allow-list.
func (r *Runner) Registered(name string) bool {
	_, ok := r.registry[name]
	return ok
}

// Run executes the registered command with args appended and returns stdout.
// Arguments are passed as argv entries, never through a shell.
func (r *Runner) Run(ctx context.Context, name string, args ...string) (string, error) {
	proc, ok := r.registry[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotRegistered, name)
	}

	argv := append(append([]string{}, proc.Args...), args...)
	cmd := exec.CommandContext(ctx, proc.Command, argv...)
	cmd.Dir = r.baseDir
	if len(proc.Env) > 0 {
		cmd.Env = append(cmd.Environ(), proc.Env...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%s failed: %w. Stderr: %s", name, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}
