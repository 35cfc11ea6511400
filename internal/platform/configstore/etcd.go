// Copyright (c) 2026 Sigma. All rights reserved.

package configstore

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
	"go.etcd.io/etcd/api/v3/mvccpb"
)

const (
	dialTimeout  = 5 * time.Second
	requestTimeout = 10 * time.Second
)

// EtcdClient implements Client against a live etcd cluster, chosen as
// the hierarchical KV backend: its lexicographically ordered key space
// and native prefix-range watch map directly onto the
// /{ENV}/{SERVICE}/... layout §6 describes, and it gives Sigma
// the same "recursive watch, survives reconnect" semantics the
// ZooKeeper-shaped contract requires without writing a client from
// scratch.
type EtcdClient struct {
	cli *clientv3.Client
	log *slog.Logger
}

// NewEtcdClient dials endpoints and validates connectivity.
func NewEtcdClient(ctx context.Context, endpoints []string, log *slog.Logger) (*EtcdClient, error) {
	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   endpoints,
		DialTimeout: dialTimeout,
		Context:     ctx,
	})
	if err != nil {
		return nil, fmt.Errorf("configstore: failed to dial etcd: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	if _, err := cli.Status(pingCtx, endpoints[0]); err != nil {
		_ = cli.Close()
		return nil, fmt.Errorf("configstore: etcd status probe failed: %w", err)
	}

	return &EtcdClient{cli: cli, log: log}, nil
}

func (c *EtcdClient) Exists(ctx context.Context, path string) (bool, error) {
	getCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	resp, err := c.cli.Get(getCtx, path, clientv3.WithCountOnly())
	if err != nil {
		return false, fmt.Errorf("configstore: exists(%s): %w", path, err)
	}
	return resp.Count > 0, nil
}

func (c *EtcdClient) Read(ctx context.Context, path string) ([]byte, error) {
	getCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	resp, err := c.cli.Get(getCtx, path)
	if err != nil {
		return nil, fmt.Errorf("configstore: read(%s): %w", path, err)
	}
	if len(resp.Kvs) == 0 {
		return nil, nil
	}
	return resp.Kvs[0].Value, nil
}

func (c *EtcdClient) Children(ctx context.Context, path string) ([]string, error) {
	prefix := strings.TrimSuffix(path, "/") + "/"

	getCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	resp, err := c.cli.Get(getCtx, prefix, clientv3.WithPrefix(), clientv3.WithKeysOnly())
	if err != nil {
		return nil, fmt.Errorf("configstore: children(%s): %w", path, err)
	}

	seen := make(map[string]struct{})
	var children []string
	for _, kv := range resp.Kvs {
		rest := strings.TrimPrefix(string(kv.Key), prefix)
		segment := strings.SplitN(rest, "/", 2)[0]
		if segment == "" {
			continue
		}
		if _, ok := seen[segment]; ok {
			continue
		}
		seen[segment] = struct{}{}
		children = append(children, segment)
	}
	return children, nil
}

func (c *EtcdClient) ReadSubtree(ctx context.Context, path string) (Snapshot, error) {
	prefix := strings.TrimSuffix(path, "/") + "/"

	getCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	resp, err := c.cli.Get(getCtx, prefix, clientv3.WithPrefix())
	if err != nil {
		return nil, fmt.Errorf("configstore: read_subtree(%s): %w", path, err)
	}

	snapshot := make(Snapshot, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		snapshot[string(kv.Key)] = kv.Value
	}
	return snapshot, nil
}

// Watch registers a recursive prefix watch. The etcd client transparently
// resumes the underlying gRPC watch stream after a disconnect; this loop
// additionally re-issues WatchChan if the channel itself closes (e.g.
// after a compaction error), satisfying the "re-arms after reconnect"
// contract without the caller doing anything.
func (c *EtcdClient) Watch(ctx context.Context, path string, callback WatchFunc) error {
	prefix := strings.TrimSuffix(path, "/") + "/"

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			watchChan := c.cli.Watch(ctx, prefix, clientv3.WithPrefix())
			for watchResp := range watchChan {
				if err := watchResp.Err(); err != nil {
					c.log.Error("configstore_watch_error", slog.String("path", path), slog.Any("error", err))
					break
				}
				for _, ev := range watchResp.Events {
					callback(Event{Kind: translateEventKind(ev), Path: string(ev.Kv.Key)})
				}
			}

			select {
			case <-ctx.Done():
				return
			default:
				c.log.Warn("configstore_watch_reconnecting", slog.String("path", path))
			}
		}
	}()

	return nil
}

func translateEventKind(ev *clientv3.Event) EventKind {
	switch ev.Type {
	case mvccpb.DELETE:
		return NodeDeleted
	case mvccpb.PUT:
		if ev.IsCreate() {
			return NodeCreated
		}
		return NodeChanged
	default:
		return NodeChanged
	}
}

func (c *EtcdClient) Close() error {
	return c.cli.Close()
}

var _ Client = (*EtcdClient)(nil)
