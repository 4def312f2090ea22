// Command ailctl is the CLI for the AIL runtime: read a Cognition
// tree as AIL text, evaluate it through the kernel, print the
// resulting CognitionResult as JSON.
//
// Usage:
//
//	ailctl run --config config.yaml program.ail
//	echo '(EXECUTE [shell] ["echo hi"])' | ailctl run --config config.yaml
//	ailctl validate program.ail
package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
)

// CLI defines the command-line interface.
type CLI struct {
	Run      RunCmd      `cmd:"" help:"Execute an AIL program through the kernel."`
	Validate ValidateCmd `cmd:"" help:"Parse and validate an AIL program without executing it."`
	Version  VersionCmd  `cmd:"" help:"Show version information."`

	Config    string `short:"c" help:"Path to config file." type:"path"`
	LogLevel  string `help:"Log level (debug, info, warn, error)." default:"info"`
	LogFormat string `help:"Log format (text or json)." default:"text"`
}

func main() {
	_ = godotenv.Load()

	cli := CLI{}
	ctx := kong.Parse(&cli,
		kong.Name("ailctl"),
		kong.Description("Agent Instruction Language runtime CLI"),
		kong.UsageOnError(),
	)

	if err := ctx.Run(&cli); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
