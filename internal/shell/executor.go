// Package shell exposes external commands as tools. Each command receives the
// call's arguments as a JSON object on stdin and answers on stdout.
package shell

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/moorebrett0/concierge/internal/tool"
)

// blockedPatterns are substrings that are never allowed in commands.
var blockedPatterns = []string{
	"rm -rf /",
	"rm -rf /*",
	"mkfs",
	"dd if=",
	":(){", // fork bomb
	"chmod -R 777",
	"> /dev/sd",
	"shutdown",
	"reboot",
	"halt",
	"init 0",
	"init 6",
	"passwd",
	"useradd",
	"userdel",
	"visudo",
}

// Command declares one command-backed tool.
type Command struct {
	Name        string        `yaml:"name"`
	Description string        `yaml:"description"`
	Run         []string      `yaml:"run"`
	Params      []Param       `yaml:"params"`
	Timeout     time.Duration `yaml:"timeout"`
}

// Param declares one argument of a command tool.
type Param struct {
	Name        string `yaml:"name"`
	Type        string `yaml:"type"`
	Description string `yaml:"description"`
	Required    bool   `yaml:"required"`
}

// Executor runs tool commands with safety checks and timeouts.
type Executor struct {
	timeout   time.Duration
	maxOutput int
}

// New creates a shell executor.
func New(timeout time.Duration, maxOutput int) *Executor {
	return &Executor{
		timeout:   timeout,
		maxOutput: maxOutput,
	}
}

// Register adds every command to r as a tool.
func (e *Executor) Register(r *tool.Registry, cmds []Command) error {
	for _, c := range cmds {
		if len(c.Run) == 0 {
			return fmt.Errorf("command tool %q: run is empty", c.Name)
		}
		if blocked := checkBlocked(strings.Join(c.Run, " ")); blocked != "" {
			return fmt.Errorf("command tool %q: blocked command pattern %q", c.Name, blocked)
		}

		d := tool.Descriptor{Name: c.Name, Description: c.Description}
		for _, p := range c.Params {
			d.Params = append(d.Params, tool.Param{
				Name:        p.Name,
				Type:        p.Type,
				Description: p.Description,
				Required:    p.Required,
			})
		}
		if err := r.Register(d, e.handler(c)); err != nil {
			return err
		}
		slog.Debug("shell: registered command tool", "tool", c.Name, "run", c.Run[0])
	}
	return nil
}

func (e *Executor) handler(c Command) tool.Handler {
	return func(ctx context.Context, args tool.Args) (any, error) {
		input, err := json.Marshal(args)
		if err != nil {
			return nil, fmt.Errorf("encoding arguments: %w", err)
		}

		slog.Info("shell: running command tool", "tool", c.Name)
		out, err := e.Run(ctx, c, input)
		if err != nil {
			if out != "" {
				return nil, fmt.Errorf("%w\noutput: %s", err, out)
			}
			return nil, err
		}

		var structured any
		if json.Valid([]byte(out)) && json.Unmarshal([]byte(out), &structured) == nil {
			return structured, nil
		}
		return out, nil
	}
}

// Run executes the command with stdin as input and returns its stdout,
// truncated to maxOutput. Stderr is folded into the error on failure.
func (e *Executor) Run(ctx context.Context, c Command, stdin []byte) (string, error) {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = e.timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.Run[0], c.Run[1:]...)
	cmd.Stdin = bytes.NewReader(stdin)
	cmd.Env = append(os.Environ(), "CONCIERGE_TOOL="+c.Name)
	cmd.WaitDelay = time.Second
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()

	result := strings.TrimSpace(stdout.String())
	if e.maxOutput > 0 && len(result) > e.maxOutput {
		result = result[:e.maxOutput] + "\n... [output truncated]"
	}

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return result, fmt.Errorf("command timed out after %s", timeout)
	}

	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return result, fmt.Errorf("command failed: %w: %s", err, msg)
		}
		return result, fmt.Errorf("command failed: %w", err)
	}

	return result, nil
}

func checkBlocked(command string) string {
	lower := strings.ToLower(command)
	for _, pattern := range blockedPatterns {
		if strings.Contains(lower, strings.ToLower(pattern)) {
			return pattern
		}
	}
	return ""
}
