package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/go-zookeeper/zk"
)

// ZookeeperProvider loads config from a single ZooKeeper znode and
// watches it via ZooKeeper's one-shot watch API, re-arming the watch
// after each fired event.
type ZookeeperProvider struct {
	conn *zk.Conn
	path string
}

// NewZookeeperProvider connects to the ensemble at cfg.Endpoints.
func NewZookeeperProvider(cfg Config) (*ZookeeperProvider, error) {
	if len(cfg.Endpoints) == 0 {
		return nil, fmt.Errorf("provider: zookeeper requires at least one endpoint")
	}
	conn, _, err := zk.Connect(cfg.Endpoints, 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("provider: zookeeper connect: %w", err)
	}
	return &ZookeeperProvider{conn: conn, path: cfg.Path}, nil
}

func (p *ZookeeperProvider) Type() Type { return TypeZookeeper }

func (p *ZookeeperProvider) Load(ctx context.Context) ([]byte, error) {
	data, _, err := p.conn.Get(p.path)
	if err != nil {
		return nil, fmt.Errorf("provider: zookeeper get %s: %w", p.path, err)
	}
	return data, nil
}

func (p *ZookeeperProvider) Watch(ctx context.Context) (<-chan struct{}, error) {
	ch := make(chan struct{}, 1)
	go p.watchLoop(ctx, ch)
	return ch, nil
}

func (p *ZookeeperProvider) watchLoop(ctx context.Context, ch chan<- struct{}) {
	defer close(ch)
	for {
		_, _, events, err := p.conn.GetW(p.path)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			time.Sleep(time.Second)
			continue
		}
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if ev.Type == zk.EventNodeDataChanged {
				select {
				case ch <- struct{}{}:
				default:
				}
			}
		}
	}
}

func (p *ZookeeperProvider) Close() error {
	p.conn.Close()
	return nil
}

var _ Provider = (*ZookeeperProvider)(nil)
