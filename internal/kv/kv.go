// Package kv is a small namespaced key-value store that survives restarts.
//
// Writes go to a Handle and become durable only on Commit, which replaces the
// whole namespace atomically. A failed Commit leaves the previous values.
package kv

import (
	"errors"
	"fmt"
	"maps"
	"sync"
)

var (
	// ErrNotFound is returned for a key that was never committed.
	ErrNotFound = errors.New("key not found")
	// ErrTypeMismatch is returned when a key holds the other value kind.
	ErrTypeMismatch = errors.New("key holds a different type")
	// ErrClosed is returned by a Handle after Close.
	ErrClosed = errors.New("handle closed")
)

// Store opens namespaces.
type Store interface {
	Open(namespace string) (*Handle, error)
}

// namespace holds committed values of one namespace.
type namespace struct {
	Strings map[string]string `json:"strings,omitempty"`
	Ints    map[string]int32  `json:"ints,omitempty"`
}

func (n namespace) clone() namespace {
	return namespace{Strings: maps.Clone(n.Strings), Ints: maps.Clone(n.Ints)}
}

// backend persists the full set of namespaces.
type backend interface {
	persist(all map[string]namespace) error
}

// base is the shared committed state behind every Store implementation.
type base struct {
	mu  sync.Mutex
	all map[string]namespace
	be  backend
}

func (b *base) Open(name string) (*Handle, error) {
	if name == "" {
		return nil, errors.New("empty namespace")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return &Handle{b: b, name: name, pending: b.all[name].clone()}, nil
}

func (b *base) commit(name string, ns namespace) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	next := make(map[string]namespace, len(b.all)+1)
	for k, v := range b.all {
		next[k] = v
	}
	next[name] = ns.clone()
	if err := b.be.persist(next); err != nil {
		return fmt.Errorf("commit %s: %w", name, err)
	}
	b.all = next
	return nil
}

// Handle reads and stages writes within one namespace. It is not safe for
// concurrent use.
type Handle struct {
	b       *base
	name    string
	pending namespace
	closed  bool
}

func (h *Handle) GetString(key string) (string, error) {
	if h.closed {
		return "", ErrClosed
	}
	if v, ok := h.pending.Strings[key]; ok {
		return v, nil
	}
	if _, ok := h.pending.Ints[key]; ok {
		return "", fmt.Errorf("%s: %w", key, ErrTypeMismatch)
	}
	return "", fmt.Errorf("%s: %w", key, ErrNotFound)
}

func (h *Handle) GetInt32(key string) (int32, error) {
	if h.closed {
		return 0, ErrClosed
	}
	if v, ok := h.pending.Ints[key]; ok {
		return v, nil
	}
	if _, ok := h.pending.Strings[key]; ok {
		return 0, fmt.Errorf("%s: %w", key, ErrTypeMismatch)
	}
	return 0, fmt.Errorf("%s: %w", key, ErrNotFound)
}

func (h *Handle) SetString(key, value string) error {
	if h.closed {
		return ErrClosed
	}
	if h.pending.Strings == nil {
		h.pending.Strings = map[string]string{}
	}
	delete(h.pending.Ints, key)
	h.pending.Strings[key] = value
	return nil
}

func (h *Handle) SetInt32(key string, value int32) error {
	if h.closed {
		return ErrClosed
	}
	if h.pending.Ints == nil {
		h.pending.Ints = map[string]int32{}
	}
	delete(h.pending.Strings, key)
	h.pending.Ints[key] = value
	return nil
}

// Commit makes every staged write durable.
func (h *Handle) Commit() error {
	if h.closed {
		return ErrClosed
	}
	return h.b.commit(h.name, h.pending)
}

// Close discards uncommitted writes.
func (h *Handle) Close() error {
	h.closed = true
	return nil
}
