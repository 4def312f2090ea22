package provider

import (
	"context"
	"fmt"

	consulapi "github.com/hashicorp/consul/api"
)

// ConsulProvider loads config from a single Consul KV key and watches
// it via Consul's blocking-query long-poll.
type ConsulProvider struct {
	client *consulapi.Client
	key    string
}

// NewConsulProvider dials Consul at cfg.Endpoints[0] (defaulting to
// the agent's local address) and binds to cfg.Path as the KV key.
func NewConsulProvider(cfg Config) (*ConsulProvider, error) {
	apiCfg := consulapi.DefaultConfig()
	if len(cfg.Endpoints) > 0 {
		apiCfg.Address = cfg.Endpoints[0]
	}
	if cfg.Token != "" {
		apiCfg.Token = cfg.Token
	}
	client, err := consulapi.NewClient(apiCfg)
	if err != nil {
		return nil, fmt.Errorf("provider: consul client: %w", err)
	}
	return &ConsulProvider{client: client, key: cfg.Path}, nil
}

func (p *ConsulProvider) Type() Type { return TypeConsul }

func (p *ConsulProvider) Load(ctx context.Context) ([]byte, error) {
	pair, _, err := p.client.KV().Get(p.key, (&consulapi.QueryOptions{}).WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("provider: consul get %s: %w", p.key, err)
	}
	if pair == nil {
		return nil, fmt.Errorf("provider: consul key %s not found", p.key)
	}
	return pair.Value, nil
}

// Watch long-polls Consul's blocking query API: each iteration waits
// for the key's ModifyIndex to advance past the last observed value,
// then signals a change.
func (p *ConsulProvider) Watch(ctx context.Context) (<-chan struct{}, error) {
	ch := make(chan struct{}, 1)
	go p.watchLoop(ctx, ch)
	return ch, nil
}

func (p *ConsulProvider) watchLoop(ctx context.Context, ch chan<- struct{}) {
	defer close(ch)
	var lastIndex uint64
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		opts := (&consulapi.QueryOptions{WaitIndex: lastIndex}).WithContext(ctx)
		pair, meta, err := p.client.KV().Get(p.key, opts)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			continue
		}
		if pair != nil && meta.LastIndex != lastIndex {
			if lastIndex != 0 {
				select {
				case ch <- struct{}{}:
				default:
				}
			}
			lastIndex = meta.LastIndex
		}
	}
}

func (p *ConsulProvider) Close() error { return nil }

var _ Provider = (*ConsulProvider)(nil)
