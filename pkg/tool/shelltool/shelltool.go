// Package shelltool implements the "shell" tool EXECUTE/SANDBOXED-EXECUTE
// dispatch to, adapted from the teacher's CommandTool: an allow-list
// check over the base command, then "sh -c" under a context deadline.
package shelltool

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/ailrun/ail/pkg/ail"
	"github.com/ailrun/ail/pkg/sandbox"
	"github.com/ailrun/ail/pkg/tool"
)

// DefaultTimeout matches the teacher's CommandTool default.
const DefaultTimeout = 30 * time.Second

// Config controls which commands the shell tool will run.
type Config struct {
	AllowedCommands []string
	WorkingDir      string
	Timeout         time.Duration
}

// Tool runs shell commands via "sh -c".
type Tool struct {
	cfg Config
}

// New creates a shell tool. A nil or zero Config falls back to an
// unrestricted allow-list, "./" working directory and DefaultTimeout —
// SANDBOXED-EXECUTE is what actually constrains it via policy.
func New(cfg Config) *Tool {
	if cfg.WorkingDir == "" {
		cfg.WorkingDir = "./"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Tool{cfg: cfg}
}

func (t *Tool) Info() tool.Info {
	return tool.Info{
		Name:        "shell",
		Description: "Execute a shell command and return its combined stdout/stderr",
		Parameters: []tool.Parameter{
			{Name: "command", Type: "string", Description: "command to run", Required: true},
		},
		DefaultTimeoutMS: int(t.cfg.Timeout.Milliseconds()),
	}
}

func (t *Tool) Mode() tool.Mode { return tool.Blocking }

func (t *Tool) Capabilities() sandbox.Capabilities {
	return sandbox.Capabilities{
		NetworkAccess: true,
		FileAccess:    sandbox.FileAccessReadWrite,
	}
}

// Execute expects params as []ail.Value with a single string element:
// the command to run, matching EXECUTE [shell] ["command"].
func (t *Tool) Execute(ctx context.Context, params ail.Value) (tool.Result, error) {
	command, err := extractCommand(params)
	if err != nil {
		return tool.Result{Success: false, Error: err.Error()}, err
	}
	if err := t.validateCommand(command); err != nil {
		return tool.Result{Success: false, Error: err.Error()}, err
	}

	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = t.cfg.WorkingDir

	output, err := cmd.CombinedOutput()
	res := tool.Result{
		Success: err == nil,
		Value:   string(output),
		Metadata: map[string]interface{}{
			"command": command,
		},
	}
	if err != nil {
		res.Error = err.Error()
		if exitErr, ok := err.(*exec.ExitError); ok {
			res.Metadata["exit_code"] = exitErr.ExitCode()
		}
		return res, err
	}
	return res, nil
}

func extractCommand(params ail.Value) (string, error) {
	args, ok := params.([]ail.Value)
	if !ok || len(args) == 0 {
		return "", fmt.Errorf("shell: expected [command] parameters")
	}
	command, ok := args[0].(string)
	if !ok || command == "" {
		return "", fmt.Errorf("shell: command parameter must be a non-empty string")
	}
	return command, nil
}

func (t *Tool) validateCommand(command string) error {
	if len(t.cfg.AllowedCommands) == 0 {
		return nil
	}
	base := baseCommand(command)
	for _, allowed := range t.cfg.AllowedCommands {
		if base == allowed {
			return nil
		}
	}
	return fmt.Errorf("shell: command not allowed: %s (allowed: %v)", base, t.cfg.AllowedCommands)
}

func baseCommand(command string) string {
	parts := strings.FieldsFunc(command, func(r rune) bool {
		return r == '|' || r == '>' || r == '<' || r == ';'
	})
	if len(parts) == 0 {
		return ""
	}
	firstCmd := strings.Fields(strings.TrimSpace(parts[0]))
	if len(firstCmd) == 0 {
		return ""
	}
	return firstCmd[0]
}
