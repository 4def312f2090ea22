package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/a2aproject/a2a-go/a2a"

	"github.com/ailrun/ail/pkg/cognitionlog"
	"github.com/ailrun/ail/pkg/comm"
	"github.com/ailrun/ail/pkg/comm/a2asink"
	"github.com/ailrun/ail/pkg/config"
	"github.com/ailrun/ail/pkg/kernel"
	"github.com/ailrun/ail/pkg/memory"
	"github.com/ailrun/ail/pkg/memory/chromemstore"
	"github.com/ailrun/ail/pkg/memory/embedder"
	"github.com/ailrun/ail/pkg/memory/pineconestore"
	"github.com/ailrun/ail/pkg/memory/qdrantstore"
	"github.com/ailrun/ail/pkg/observability"
	"github.com/ailrun/ail/pkg/tool"
	"github.com/ailrun/ail/pkg/tool/jsontool"
	"github.com/ailrun/ail/pkg/tool/mcptool"
	"github.com/ailrun/ail/pkg/tool/plugintool"
	"github.com/ailrun/ail/pkg/tool/shelltool"
)

// runtime bundles everything buildKernel constructs so main can tear
// it down cleanly after a run.
type runtime struct {
	kernel        *kernel.Kernel
	closers       []io.Closer
	observability *observability.Manager
}

func (rt *runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		_ = rt.closers[i].Close()
	}
	if rt.observability != nil {
		_ = rt.observability.Shutdown(context.Background())
	}
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// buildKernel constructs a Kernel and its collaborators from cfg,
// registering every tool, memory backend, embedder, cognition log
// driver, and communication sink cfg names.
func buildKernel(ctx context.Context, cfg *config.Config) (*runtime, error) {
	rt := &runtime{}

	tools := tool.NewRegistry(0)
	if err := registerTools(ctx, tools, cfg.Tools, rt); err != nil {
		rt.Close()
		return nil, err
	}

	store, err := buildStore(ctx, cfg.Memory)
	if err != nil {
		rt.Close()
		return nil, err
	}

	emb, err := buildEmbedder(cfg.Embedder)
	if err != nil {
		rt.Close()
		return nil, err
	}

	log, err := cognitionlog.Open(cfg.CognitionLog.Driver, cfg.CognitionLog.DSN)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("cognition log: %w", err)
	}
	rt.closers = append(rt.closers, log)

	sink := buildSink(cfg.Communication)

	obsMgr, err := observability.NewManager(ctx, nil)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("observability: %w", err)
	}
	rt.observability = obsMgr

	rt.kernel = kernel.New(kernel.Config{
		Tools:          tools,
		Store:          store,
		Embedder:       emb,
		Log:            log,
		Sink:           sink,
		DefaultSandbox: cfg.Sandbox.ToSandboxConfig(),
		Limits:         cfg.Limits.ToLimits(),
	})

	return rt, nil
}

func registerTools(ctx context.Context, tools *tool.Registry, cfg config.ToolsConfig, rt *runtime) error {
	if cfg.Shell != nil {
		shellCfg := shelltool.Config{
			AllowedCommands: cfg.Shell.AllowedCommands,
			WorkingDir:      cfg.Shell.WorkingDir,
		}
		if cfg.Shell.TimeoutMS > 0 {
			shellCfg.Timeout = msToDuration(cfg.Shell.TimeoutMS)
		}
		if err := tools.RegisterTool(shelltool.New(shellCfg)); err != nil {
			return fmt.Errorf("register shell tool: %w", err)
		}
	}

	if cfg.JSON {
		if err := tools.RegisterTool(jsontool.New()); err != nil {
			return fmt.Errorf("register json tool: %w", err)
		}
	}

	for _, m := range cfg.MCP {
		source, err := mcptool.Connect(ctx, mcptool.Config{Command: m.Command, Args: m.Args, Env: m.Env})
		if err != nil {
			return fmt.Errorf("connect mcp server %q: %w", m.Command, err)
		}
		rt.closers = append(rt.closers, closerFunc(source.Close))

		discovered, err := source.DiscoverTools(ctx)
		if err != nil {
			return fmt.Errorf("discover mcp tools for %q: %w", m.Command, err)
		}
		for _, dt := range discovered {
			if err := tools.RegisterTool(dt); err != nil {
				return fmt.Errorf("register mcp tool: %w", err)
			}
		}
	}

	for _, p := range cfg.Plugins {
		t, err := plugintool.Load(p.Name, p.Command)
		if err != nil {
			return fmt.Errorf("load plugin %q: %w", p.Name, err)
		}
		rt.closers = append(rt.closers, closerFunc(func() error { t.Close(); return nil }))
		if err := tools.RegisterTool(t); err != nil {
			return fmt.Errorf("register plugin tool %q: %w", p.Name, err)
		}
	}

	return nil
}

func buildStore(ctx context.Context, cfg config.MemoryConfig) (memory.Store, error) {
	switch cfg.Backend {
	case "qdrant":
		return qdrantstore.New(ctx, qdrantstore.Config{
			Host:       cfg.Qdrant.Host,
			Port:       cfg.Qdrant.Port,
			APIKey:     cfg.Qdrant.APIKey,
			UseTLS:     cfg.Qdrant.UseTLS,
			Collection: cfg.Qdrant.Collection,
			VectorSize: cfg.Qdrant.VectorSize,
		})
	case "pinecone":
		return pineconestore.New(pineconestore.Config{
			APIKey:    cfg.Pinecone.APIKey,
			Host:      cfg.Pinecone.Host,
			IndexName: cfg.Pinecone.IndexName,
		})
	default:
		return chromemstore.New(chromemstore.Config{
			Collection:  cfg.Chromem.Collection,
			PersistPath: cfg.Chromem.PersistPath,
		})
	}
}

func buildEmbedder(cfg config.EmbedderConfig) (embedder.Embedder, error) {
	switch cfg.Backend {
	case "gemini":
		return embedder.NewGemini(embedder.GeminiConfig{APIKey: cfg.Gemini.APIKey, Model: cfg.Gemini.Model})
	default:
		dim := cfg.StubDim
		if dim == 0 {
			dim = 32
		}
		return embedder.NewStub(dim), nil
	}
}

func buildSink(cfg config.CommunicationConfig) comm.Sink {
	recipients := make([]a2asink.Recipient, 0, len(cfg.Recipients))
	for _, r := range cfg.Recipients {
		recipients = append(recipients, a2asink.Recipient{
			Name: r.Name,
			AgentCard: &a2a.AgentCard{
				Name:               r.Name,
				URL:                r.URL,
				ProtocolVersion:    "1.0",
				PreferredTransport: a2a.TransportProtocolJSONRPC,
			},
		})
	}
	return a2asink.New(recipients, msToDuration(cfg.TimeoutMS))
}

func msToDuration(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
