// Package store provides an in-memory ClientStore.
package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/warp/collections-engine/billing"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory keeps each client as a serialized document so patches merge the
// same way they do in the SQLite store.
type Memory struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{docs: make(map[string][]byte)}
}

func (m *Memory) Create(_ context.Context, c billing.Client) (billing.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if _, exists := m.docs[c.ID]; exists {
		return billing.Client{}, fmt.Errorf("create client %s: already exists", c.ID)
	}
	doc, err := billing.EncodeClient(c)
	if err != nil {
		return billing.Client{}, fmt.Errorf("create client: %w", err)
	}
	m.docs[c.ID] = doc
	return c, nil
}

func (m *Memory) Get(_ context.Context, id string) (billing.Client, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, ok := m.docs[id]
	if !ok {
		return billing.Client{}, fmt.Errorf("get client %s: %w", id, billing.ErrClientNotFound)
	}
	return decode(id, doc)
}

func (m *Memory) List(_ context.Context) ([]billing.Client, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]billing.Client, 0, len(m.docs))
	for id, doc := range m.docs {
		c, err := decode(id, doc)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	billing.SortByName(out)
	return out, nil
}

func (m *Memory) Save(_ context.Context, c billing.Client) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.docs[c.ID]; !ok {
		return fmt.Errorf("save client %s: %w", c.ID, billing.ErrClientNotFound)
	}
	doc, err := billing.EncodeClient(c)
	if err != nil {
		return fmt.Errorf("save client %s: %w", c.ID, err)
	}
	m.docs[c.ID] = doc
	return nil
}

func (m *Memory) ApplyPatch(_ context.Context, id string, p billing.Patch) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, ok := m.docs[id]
	if !ok {
		return fmt.Errorf("patch client %s: %w", id, billing.ErrClientNotFound)
	}
	if p.IsEmpty() {
		return nil
	}
	merged, err := billing.MergePatch(doc, p)
	if err != nil {
		return fmt.Errorf("patch client %s: %w", id, err)
	}
	m.docs[id] = merged
	return nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.docs[id]; !ok {
		return fmt.Errorf("delete client %s: %w", id, billing.ErrClientNotFound)
	}
	delete(m.docs, id)
	return nil
}

func (m *Memory) Close() error { return nil }

func decode(id string, doc []byte) (billing.Client, error) {
	c, err := billing.DecodeClient(doc)
	if err != nil {
		return billing.Client{}, fmt.Errorf("client %s: %w", id, err)
	}
	c.ID = id
	return c, nil
}

var _ billing.ClientStore = (*Memory)(nil)
