// Package sandbox implements the SANDBOXED-EXECUTE resource policy of
// spec.md §4.9: a plain declarative contract the evaluator checks
// pre-flight, not an OS-level sandbox. Tools are trusted to honor
// cpu_limit_ms and memory_limit_mb; the kernel only refuses to invoke
// a tool whose declared capabilities exceed the policy.
package sandbox

import (
	"fmt"
	"time"

	aerrors "github.com/ailrun/ail/pkg/errors"
	"github.com/mitchellh/mapstructure"
)

// FileAccess is the declared or permitted filesystem access level.
type FileAccess string

const (
	FileAccessNone      FileAccess = "none"
	FileAccessRead      FileAccess = "read"
	FileAccessReadWrite FileAccess = "read-write"
)

var fileAccessRank = map[FileAccess]int{
	FileAccessNone:      0,
	FileAccessRead:      1,
	FileAccessReadWrite: 2,
}

// Config is the SandboxConfig of spec.md §4.9.
type Config struct {
	MemoryLimitMB     uint32     `mapstructure:"memory_limit_mb"`
	CPULimitMS        uint32     `mapstructure:"cpu_limit_ms"`
	NetworkAccess     bool       `mapstructure:"network_access"`
	FileAccess        FileAccess `mapstructure:"file_access"`
	AllowedOperations []string   `mapstructure:"allowed_operations"`
}

// DefaultConfig returns spec.md's pinned defaults: {64, 1000, false,
// "none", []}.
func DefaultConfig() Config {
	return Config{
		MemoryLimitMB:     64,
		CPULimitMS:        1000,
		NetworkAccess:     false,
		FileAccess:        FileAccessNone,
		AllowedOperations: []string{},
	}
}

// Decode builds a Config from a SANDBOXED-EXECUTE "policy" metadata
// map, starting from DefaultConfig and overlaying whatever fields raw
// specifies. raw arrives as a generic map (the shape the parser
// produces for a metadata object), so decoding goes through
// mapstructure the way the rest of the kernel decodes loosely typed
// metadata into config structs.
func Decode(raw map[string]interface{}) (Config, error) {
	cfg := DefaultConfig()
	if raw == nil {
		return cfg, nil
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return Config{}, aerrors.Wrap(aerrors.KindInternal, "sandbox: building decoder", err)
	}
	if err := decoder.Decode(raw); err != nil {
		return Config{}, aerrors.Wrap(aerrors.KindValidation, "sandbox: decoding policy", err)
	}
	return cfg, nil
}

// Capabilities describes what a tool declares it needs; the evaluator
// compares these against the active policy before invocation.
type Capabilities struct {
	MemoryLimitMB uint32
	NetworkAccess bool
	FileAccess    FileAccess
}

// Enforce checks tool name and declared capabilities against cfg.
// It returns a PolicyViolation error from the first failing check, in
// the order the spec lists them: allowed_operations, memory_limit_mb,
// network_access, file_access.
func Enforce(cfg Config, toolName string, caps Capabilities) error {
	if !allowed(cfg.AllowedOperations, toolName) {
		return aerrors.WrapTool(aerrors.KindPolicyViolation, toolName,
			fmt.Sprintf("tool %q is not in allowed_operations", toolName), nil)
	}
	if caps.MemoryLimitMB > cfg.MemoryLimitMB {
		return aerrors.WrapTool(aerrors.KindPolicyViolation, toolName,
			fmt.Sprintf("tool requires %dMB, policy allows %dMB", caps.MemoryLimitMB, cfg.MemoryLimitMB), nil)
	}
	if caps.NetworkAccess && !cfg.NetworkAccess {
		return aerrors.WrapTool(aerrors.KindPolicyViolation, toolName,
			"tool requires network access, policy denies it", nil)
	}
	if fileAccessRank[caps.FileAccess] > fileAccessRank[cfg.FileAccess] {
		return aerrors.WrapTool(aerrors.KindPolicyViolation, toolName,
			fmt.Sprintf("tool requires file_access=%s, policy allows %s", caps.FileAccess, cfg.FileAccess), nil)
	}
	return nil
}

func allowed(allowedOps []string, toolName string) bool {
	for _, op := range allowedOps {
		if op == toolName {
			return true
		}
	}
	return false
}

// Timeout returns the invocation timeout cpu_limit_ms imposes.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.CPULimitMS) * time.Millisecond
}
