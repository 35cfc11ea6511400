// Copyright (c) 2026 Sigma. All rights reserved.

/*
Package configstore provides a narrow client over a hierarchical,
ZooKeeper-shaped key/value tree: existence checks, byte-array reads,
child listing, subtree snapshots, and recursive watches that re-arm
themselves after firing and after a session reconnect.

Architecture:

  - Client: the contract every layer above (Endpoint Registry, Schema
    & Enum Manager) consumes. Two implementations ship here: Etcd
    (production, go.etcd.io/etcd/client/v3) and Static (in-memory, for
    tests and file-seeded standalone runs).
  - Snapshot: an immutable point-in-time view of a subtree, matching
    §5's "readers take a snapshot per request, never a torn
    view" requirement.

This package owns no business semantics — it does not know what an
endpoint or a schema is, only paths and bytes.
*/
package configstore

import "context"

// EventKind classifies a single change notification delivered to a
// watch callback.
type EventKind int

const (
	NodeCreated EventKind = iota
	NodeChanged
	NodeDeleted
	ChildrenChanged
)

// Event is delivered to a watch callback on every observed change.
type Event struct {
	Kind EventKind
	Path string
}

// WatchFunc receives change notifications for a watched subtree. The
// client re-registers the underlying watch after every callback
// invocation and after any session reconnect, so a WatchFunc never
// needs to re-arm itself.
type WatchFunc func(Event)

// Snapshot is an immutable, point-in-time view of a subtree: path to
// raw byte value. Safe for concurrent reads from multiple goroutines.
type Snapshot map[string][]byte

// Client is the hierarchical KV contract Sigma depends on.
type Client interface {
	// Exists reports whether path has a value.
	Exists(ctx context.Context, path string) (bool, error)

	// Read returns the raw bytes at path, or nil if absent.
	Read(ctx context.Context, path string) ([]byte, error)

	// Children lists the immediate child path segments under path.
	Children(ctx context.Context, path string) ([]string, error)

	// ReadSubtree returns every leaf under path as an immutable
	// Snapshot, keyed by full path.
	ReadSubtree(ctx context.Context, path string) (Snapshot, error)

	// Watch registers a recursive watch on path. The callback fires for
	// every descendant change and re-arms itself automatically,
	// including after a reconnect. Watch returns once registration
	// succeeds; it does not block.
	Watch(ctx context.Context, path string, callback WatchFunc) error

	// Close releases any underlying connection.
	Close() error
}
