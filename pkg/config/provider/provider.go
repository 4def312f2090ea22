// Package provider defines the config source abstraction the kernel's
// configuration loader reads through: a file on disk by default, or a
// remote key-value store for deployments that centralize config.
package provider

import (
	"context"
	"fmt"
)

// Type identifies the config source type.
type Type string

const (
	TypeFile      Type = "file"
	TypeConsul    Type = "consul"
	TypeEtcd      Type = "etcd"
	TypeZookeeper Type = "zookeeper"
)

// ParseType converts a string to a Type, defaulting to TypeFile.
func ParseType(s string) (Type, error) {
	switch s {
	case "file", "":
		return TypeFile, nil
	case "consul":
		return TypeConsul, nil
	case "etcd":
		return TypeEtcd, nil
	case "zookeeper", "zk":
		return TypeZookeeper, nil
	default:
		return "", fmt.Errorf("provider: unknown type %q", s)
	}
}

// Provider abstracts config sources. Implementations must be safe for
// concurrent use.
type Provider interface {
	// Type returns the provider type for logging/debugging.
	Type() Type

	// Load reads raw config bytes from the source.
	Load(ctx context.Context) ([]byte, error)

	// Watch starts watching for changes and signals via the returned
	// channel. Cancel ctx to stop watching. Returns a nil channel if
	// the source does not support watching.
	Watch(ctx context.Context) (<-chan struct{}, error)

	// Close releases any resources held by the provider.
	Close() error
}

// Config configures provider creation.
type Config struct {
	// Type selects the backend (file, consul, etcd, zookeeper).
	Type Type

	// Path is the config path: a filesystem path for TypeFile, or a
	// key path for the remote backends.
	Path string

	// Endpoints addresses the remote backend (consul/etcd/zookeeper).
	Endpoints []string

	// Token authenticates against the remote backend, if required.
	Token string
}

// New creates a Provider from cfg.
func New(cfg Config) (Provider, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("provider: path is required")
	}
	switch cfg.Type {
	case TypeFile, "":
		return NewFileProvider(cfg.Path)
	case TypeConsul:
		return NewConsulProvider(cfg)
	case TypeEtcd:
		return NewEtcdProvider(cfg)
	case TypeZookeeper:
		return NewZookeeperProvider(cfg)
	default:
		return nil, fmt.Errorf("provider: unknown type %q", cfg.Type)
	}
}
