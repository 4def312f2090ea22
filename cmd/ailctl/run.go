package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	root "github.com/ailrun/ail"
	"github.com/ailrun/ail/pkg/ail"
	"github.com/ailrun/ail/pkg/config"
	"github.com/ailrun/ail/pkg/kernel"
	"github.com/ailrun/ail/pkg/logger"
	"github.com/ailrun/ail/pkg/validator"
)

// RunCmd executes a single AIL program through the kernel and prints
// the resulting CognitionResult as JSON.
type RunCmd struct {
	Program    string `arg:"" optional:"" help:"Path to an .ail file. Reads stdin when omitted." type:"path"`
	AgentID    string `name:"agent-id" default:"cli" help:"Agent ID attributed to this execution."`
	DeadlineMS int64  `name:"deadline-ms" help:"Bound the whole call; 0 means no deadline."`
}

func (c *RunCmd) Run(cli *CLI) error {
	logger.Init(logger.ParseLevel(cli.LogLevel), os.Stderr, cli.LogFormat)

	cfg, err := loadConfig(cli.Config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	text, err := readProgram(c.Program)
	if err != nil {
		return fmt.Errorf("read program: %w", err)
	}

	ctx := context.Background()
	rt, err := buildKernel(ctx, cfg)
	if err != nil {
		return fmt.Errorf("build kernel: %w", err)
	}
	defer rt.Close()

	slog.Info("ailctl: executing cognition", "agent_id", c.AgentID, "bytes", len(text))

	result := rt.kernel.Execute(ctx, text, c.AgentID, kernel.Options{DeadlineMS: c.DeadlineMS})

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("encode result: %w", err)
	}

	if !result.Success {
		os.Exit(1)
	}
	return nil
}

// ValidateCmd parses and validates an AIL program without executing it.
type ValidateCmd struct {
	Program string `arg:"" optional:"" help:"Path to an .ail file. Reads stdin when omitted." type:"path"`
}

func (c *ValidateCmd) Run(cli *CLI) error {
	text, err := readProgram(c.Program)
	if err != nil {
		return fmt.Errorf("read program: %w", err)
	}

	tree, err := ail.ParseWithLimits(text, ail.DefaultLimits)
	if err != nil {
		return fmt.Errorf("parse: %w", err)
	}
	if err := validator.Validate(tree); err != nil {
		return fmt.Errorf("validate: %w", err)
	}

	fmt.Println("ok")
	return nil
}

// VersionCmd prints build version information.
type VersionCmd struct{}

func (c *VersionCmd) Run(cli *CLI) error {
	fmt.Println(root.GetVersion().String())
	return nil
}

func readProgram(path string) (string, error) {
	if path == "" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		cfg := &config.Config{}
		cfg.SetDefaults()
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	return config.LoadFile(path)
}
