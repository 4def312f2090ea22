// Package config defines the kernel's YAML configuration schema and
// loads it through a pluggable provider.Provider (local file by
// default; Consul, etcd or ZooKeeper for centralized deployments),
// grounded on the teacher's pkg/config/loader.go: read raw bytes,
// expand ${ENV_VAR} references, decode into Config, default, validate.
package config

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/ailrun/ail/pkg/ail"
	"github.com/ailrun/ail/pkg/config/provider"
	"github.com/ailrun/ail/pkg/sandbox"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for an ailctl process.
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Limits       LimitsConfig       `yaml:"limits"`
	Sandbox      SandboxConfig      `yaml:"sandbox"`
	Tools        ToolsConfig        `yaml:"tools"`
	Memory       MemoryConfig       `yaml:"memory"`
	Embedder     EmbedderConfig     `yaml:"embedder"`
	CognitionLog CognitionLogConfig `yaml:"cognition_log"`
	Communication CommunicationConfig `yaml:"communication"`
	Logger       LoggerConfig       `yaml:"logger"`
}

// ServerConfig holds the host and port under "server". ailctl only
// runs one-shot commands and does not read these settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// LimitsConfig mirrors ail.Limits.
type LimitsConfig struct {
	MaxDepth  int `yaml:"max_depth"`
	MaxTokens int `yaml:"max_tokens"`
}

// ToLimits converts to the ail package's Limits type.
func (l LimitsConfig) ToLimits() ail.Limits {
	return ail.Limits{MaxDepth: l.MaxDepth, MaxTokens: l.MaxTokens}
}

// SandboxConfig mirrors sandbox.Config, the kernel's default policy
// applied when a SANDBOXED-EXECUTE omits its own policy.
type SandboxConfig struct {
	MemoryLimitMB     uint32   `yaml:"memory_limit_mb"`
	CPULimitMS        uint32   `yaml:"cpu_limit_ms"`
	NetworkAccess     bool     `yaml:"network_access"`
	FileAccess        string   `yaml:"file_access"`
	AllowedOperations []string `yaml:"allowed_operations"`
}

// ToSandboxConfig converts to sandbox.Config.
func (s SandboxConfig) ToSandboxConfig() sandbox.Config {
	return sandbox.Config{
		MemoryLimitMB:     s.MemoryLimitMB,
		CPULimitMS:        s.CPULimitMS,
		NetworkAccess:     s.NetworkAccess,
		FileAccess:        sandbox.FileAccess(s.FileAccess),
		AllowedOperations: s.AllowedOperations,
	}
}

// ToolsConfig enables and configures individual tools by name.
type ToolsConfig struct {
	Shell      *ShellToolConfig       `yaml:"shell,omitempty"`
	JSON       bool                   `yaml:"json,omitempty"`
	MCP        []MCPToolConfig        `yaml:"mcp,omitempty"`
	Plugins    []PluginToolConfig     `yaml:"plugins,omitempty"`
}

// ShellToolConfig configures the built-in shell tool.
type ShellToolConfig struct {
	AllowedCommands []string `yaml:"allowed_commands,omitempty"`
	WorkingDir      string   `yaml:"working_dir,omitempty"`
	TimeoutMS       int      `yaml:"timeout_ms,omitempty"`
}

// MCPToolConfig configures one external MCP tool source.
type MCPToolConfig struct {
	Command string            `yaml:"command"`
	Args    []string          `yaml:"args,omitempty"`
	Env     map[string]string `yaml:"env,omitempty"`
}

// PluginToolConfig configures one out-of-process native plugin.
type PluginToolConfig struct {
	Name    string   `yaml:"name"`
	Command string   `yaml:"command"`
	Args    []string `yaml:"args,omitempty"`
}

// MemoryConfig selects and configures the memory.Store backend.
type MemoryConfig struct {
	// Backend is one of "chromem" (default), "qdrant", "pinecone".
	Backend  string               `yaml:"backend"`
	Chromem  ChromemStoreConfig   `yaml:"chromem,omitempty"`
	Qdrant   QdrantStoreConfig    `yaml:"qdrant,omitempty"`
	Pinecone PineconeStoreConfig  `yaml:"pinecone,omitempty"`
}

type ChromemStoreConfig struct {
	Collection  string `yaml:"collection"`
	PersistPath string `yaml:"persist_path,omitempty"`
}

type QdrantStoreConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	APIKey     string `yaml:"api_key,omitempty"`
	UseTLS     bool   `yaml:"use_tls,omitempty"`
	Collection string `yaml:"collection"`
	VectorSize uint64 `yaml:"vector_size,omitempty"`
}

type PineconeStoreConfig struct {
	APIKey    string `yaml:"api_key"`
	Host      string `yaml:"host"`
	IndexName string `yaml:"index_name"`
}

// EmbedderConfig selects and configures the embedder.Embedder backend.
type EmbedderConfig struct {
	// Backend is one of "stub" (default, dependency-free) or "gemini".
	Backend string       `yaml:"backend"`
	Gemini  GeminiConfig `yaml:"gemini,omitempty"`
	StubDim int          `yaml:"stub_dimension,omitempty"`
}

type GeminiConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model,omitempty"`
}

// CognitionLogConfig configures the durable cognition log backend.
type CognitionLogConfig struct {
	// Driver is one of "sqlite3" (default), "postgres", "mysql".
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// CommunicationConfig configures the COMMUNICATE sink's recipient
// directory.
type CommunicationConfig struct {
	TimeoutMS  int                `yaml:"timeout_ms,omitempty"`
	Recipients []RecipientConfig  `yaml:"recipients,omitempty"`
}

// RecipientConfig names one A2A peer and the URL its agent card is
// reachable at.
type RecipientConfig struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// LoggerConfig configures pkg/logger's slog handler.
type LoggerConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// SetDefaults fills in the pinned defaults for any field the YAML
// document left zero.
func (c *Config) SetDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Limits.MaxDepth == 0 {
		c.Limits.MaxDepth = ail.DefaultLimits.MaxDepth
	}
	if c.Limits.MaxTokens == 0 {
		c.Limits.MaxTokens = ail.DefaultLimits.MaxTokens
	}

	sandboxZero := c.Sandbox.MemoryLimitMB == 0 && c.Sandbox.CPULimitMS == 0 &&
		!c.Sandbox.NetworkAccess && c.Sandbox.FileAccess == "" && len(c.Sandbox.AllowedOperations) == 0
	if sandboxZero {
		def := sandbox.DefaultConfig()
		c.Sandbox = SandboxConfig{
			MemoryLimitMB: def.MemoryLimitMB,
			CPULimitMS:    def.CPULimitMS,
			NetworkAccess: def.NetworkAccess,
			FileAccess:    string(def.FileAccess),
		}
	}

	if c.Memory.Backend == "" {
		c.Memory.Backend = "chromem"
	}
	if c.Memory.Chromem.Collection == "" {
		c.Memory.Chromem.Collection = "memories"
	}

	if c.Embedder.Backend == "" {
		c.Embedder.Backend = "stub"
	}
	if c.Embedder.StubDim == 0 {
		c.Embedder.StubDim = 32
	}

	if c.CognitionLog.Driver == "" {
		c.CognitionLog.Driver = "sqlite3"
	}
	if c.CognitionLog.DSN == "" {
		c.CognitionLog.DSN = "ail.db"
	}

	if c.Communication.TimeoutMS == 0 {
		c.Communication.TimeoutMS = 30_000
	}

	if c.Logger.Level == "" {
		c.Logger.Level = "info"
	}
	if c.Logger.Format == "" {
		c.Logger.Format = "text"
	}
}

// Validate checks the configuration for internal consistency beyond
// what YAML decoding already enforces.
func (c *Config) Validate() error {
	switch c.Memory.Backend {
	case "chromem", "qdrant", "pinecone":
	default:
		return fmt.Errorf("config: unknown memory backend %q", c.Memory.Backend)
	}
	if c.Memory.Backend == "qdrant" && c.Memory.Qdrant.Collection == "" {
		return fmt.Errorf("config: memory.qdrant.collection is required")
	}
	if c.Memory.Backend == "pinecone" {
		if c.Memory.Pinecone.APIKey == "" || c.Memory.Pinecone.IndexName == "" {
			return fmt.Errorf("config: memory.pinecone.api_key and index_name are required")
		}
	}

	switch c.Embedder.Backend {
	case "stub", "gemini":
	default:
		return fmt.Errorf("config: unknown embedder backend %q", c.Embedder.Backend)
	}
	if c.Embedder.Backend == "gemini" && c.Embedder.Gemini.APIKey == "" {
		return fmt.Errorf("config: embedder.gemini.api_key is required")
	}

	switch c.CognitionLog.Driver {
	case "sqlite3", "postgres", "mysql":
	default:
		return fmt.Errorf("config: unknown cognition_log driver %q", c.CognitionLog.Driver)
	}

	for i, r := range c.Communication.Recipients {
		if r.Name == "" || r.URL == "" {
			return fmt.Errorf("config: communication.recipients[%d] requires name and url", i)
		}
	}

	if c.Limits.MaxDepth <= 0 {
		return fmt.Errorf("config: limits.max_depth must be positive")
	}
	return nil
}

// Load reads raw bytes, expands environment variables, parses YAML and
// returns a defaulted, validated Config.
func Load(data []byte) (*Config, error) {
	expanded := expandEnvVars(string(data))

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile is a convenience wrapper over Load for a plain local file,
// bypassing the provider abstraction entirely (used by ailctl to read
// its config file).
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Load(data)
}

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnvVars replaces every ${VAR} reference with os.Getenv(VAR),
// leaving unset variables as an empty string rather than erroring —
// matching the teacher's permissive ${...} expansion.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := strings.TrimSuffix(strings.TrimPrefix(match, "${"), "}")
		return os.Getenv(name)
	})
}

// Loader reads and optionally watches configuration through a
// provider.Provider.
type Loader struct {
	provider provider.Provider
}

// NewLoader creates a Loader bound to p.
func NewLoader(p provider.Provider) *Loader {
	return &Loader{provider: p}
}

// Load reads, expands, parses, defaults and validates the current
// configuration.
func (l *Loader) Load(ctx context.Context) (*Config, error) {
	data, err := l.provider.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("config: load from %s provider: %w", l.provider.Type(), err)
	}
	return Load(data)
}

// Watch blocks, invoking onChange with a freshly reloaded Config each
// time the provider signals a change, until ctx is cancelled. A
// reload error is reported to onError rather than stopping the watch.
func (l *Loader) Watch(ctx context.Context, onChange func(*Config), onError func(error)) error {
	changes, err := l.provider.Watch(ctx)
	if err != nil {
		return fmt.Errorf("config: start watch: %w", err)
	}
	if changes == nil {
		<-ctx.Done()
		return ctx.Err()
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-changes:
			if !ok {
				return nil
			}
			cfg, err := l.Load(ctx)
			if err != nil {
				if onError != nil {
					onError(err)
				}
				continue
			}
			onChange(cfg)
		}
	}
}

// Close releases the underlying provider's resources.
func (l *Loader) Close() error {
	return l.provider.Close()
}
