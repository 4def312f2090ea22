// Package plugintool runs out-of-process native tools as
// hashicorp/go-plugin subprocesses, grounded on the teacher's
// pkg/plugins/grpc loader but over go-plugin's simpler net/rpc
// transport instead of its generated-gRPC one (spec.md's "externally
// registered callable" needs no schema-compiler output; see
// DESIGN.md's note on the dropped protobuf plugin transport).
//
// Plugin-side parameters and results cross the process boundary as
// JSON bytes rather than gob-encoded interface{} values, so a plugin
// author only needs encoding/json, not knowledge of ail.Value's
// internal dynamic types.
package plugintool

import (
	"context"
	"encoding/json"
	"fmt"
	"net/rpc"
	"os/exec"

	goplugin "github.com/hashicorp/go-plugin"

	"github.com/ailrun/ail/pkg/ail"
	"github.com/ailrun/ail/pkg/sandbox"
	"github.com/ailrun/ail/pkg/tool"
)

// Handshake is the shared magic cookie both host and plugin binary
// must agree on before a connection is trusted.
var Handshake = goplugin.HandshakeConfig{
	ProtocolVersion:  1,
	MagicCookieKey:   "AIL_PLUGIN",
	MagicCookieValue: "ail-tool-plugin",
}

// Args is the net/rpc request for a single tool invocation.
type Args struct {
	ParamsJSON []byte
}

// Reply is the net/rpc response.
type Reply struct {
	Success      bool
	ValueJSON    []byte
	Error        string
	MemoryMB     uint32
	NetworkAccess bool
	FileAccess   string
}

// Backend is implemented by the plugin subprocess.
type Backend interface {
	Invoke(args Args) (Reply, error)
	Describe() (Reply, error)
}

// Plugin is the go-plugin descriptor shared by host and subprocess.
type Plugin struct {
	Impl Backend
}

func (p *Plugin) Server(*goplugin.MuxBroker) (interface{}, error) {
	return &rpcServer{impl: p.Impl}, nil
}

func (p *Plugin) Client(_ *goplugin.MuxBroker, c *rpc.Client) (interface{}, error) {
	return &rpcClient{client: c}, nil
}

var _ goplugin.Plugin = (*Plugin)(nil)

type rpcServer struct {
	impl Backend
}

func (s *rpcServer) Invoke(args Args, reply *Reply) error {
	r, err := s.impl.Invoke(args)
	*reply = r
	return err
}

func (s *rpcServer) Describe(_ struct{}, reply *Reply) error {
	r, err := s.impl.Describe()
	*reply = r
	return err
}

type rpcClient struct {
	client *rpc.Client
}

func (c *rpcClient) Invoke(args Args) (Reply, error) {
	var reply Reply
	err := c.client.Call("Plugin.Invoke", args, &reply)
	return reply, err
}

func (c *rpcClient) Describe() (Reply, error) {
	var reply Reply
	err := c.client.Call("Plugin.Describe", struct{}{}, &reply)
	return reply, err
}

// Tool is a kernel Tool backed by an out-of-process plugin binary.
type Tool struct {
	name    string
	client  *goplugin.Client
	backend Backend
	caps    sandbox.Capabilities
}

// Load launches the plugin binary at path and retrieves its Backend.
func Load(name, path string) (*Tool, error) {
	client := goplugin.NewClient(&goplugin.ClientConfig{
		HandshakeConfig:  Handshake,
		Plugins:          map[string]goplugin.Plugin{"tool": &Plugin{}},
		Cmd:              exec.Command(path),
		AllowedProtocols: []goplugin.Protocol{goplugin.ProtocolNetRPC},
	})

	rpcClient, err := client.Client()
	if err != nil {
		client.Kill()
		return nil, fmt.Errorf("plugintool: connecting to %s: %w", path, err)
	}

	raw, err := rpcClient.Dispense("tool")
	if err != nil {
		client.Kill()
		return nil, fmt.Errorf("plugintool: dispensing %s: %w", path, err)
	}

	backend, ok := raw.(Backend)
	if !ok {
		client.Kill()
		return nil, fmt.Errorf("plugintool: %s does not implement Backend", path)
	}

	t := &Tool{name: name, client: client, backend: backend}
	if desc, err := backend.Describe(); err == nil {
		t.caps = sandbox.Capabilities{
			MemoryLimitMB: desc.MemoryMB,
			NetworkAccess: desc.NetworkAccess,
			FileAccess:    sandbox.FileAccess(desc.FileAccess),
		}
	}
	return t, nil
}

// Close terminates the plugin subprocess.
func (t *Tool) Close() {
	t.client.Kill()
}

func (t *Tool) Info() tool.Info {
	return tool.Info{Name: t.name, Description: "out-of-process plugin tool"}
}

// Mode is always Blocking: every call crosses a process boundary.
func (t *Tool) Mode() tool.Mode { return tool.Blocking }

func (t *Tool) Capabilities() sandbox.Capabilities { return t.caps }

func (t *Tool) Execute(_ context.Context, params ail.Value) (tool.Result, error) {
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return tool.Result{Success: false, Error: err.Error()}, err
	}

	reply, err := t.backend.Invoke(Args{ParamsJSON: paramsJSON})
	if err != nil {
		return tool.Result{Success: false, Error: err.Error()}, err
	}
	if !reply.Success {
		err := fmt.Errorf("plugintool: %s: %s", t.name, reply.Error)
		return tool.Result{Success: false, Error: reply.Error}, err
	}

	var value ail.Value
	if len(reply.ValueJSON) > 0 {
		if err := json.Unmarshal(reply.ValueJSON, &value); err != nil {
			return tool.Result{Success: false, Error: err.Error()}, err
		}
	}
	return tool.Result{Success: true, Value: value}, nil
}
