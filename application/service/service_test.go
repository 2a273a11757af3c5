package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/fireclub/semsearch/domain/product"
	"github.com/fireclub/semsearch/infrastructure/catalog"
	"github.com/fireclub/semsearch/infrastructure/snapshot"
)

// fakeCatalog serves products from a map.
type fakeCatalog struct {
	mu       sync.Mutex
	products map[int64]product.Product
	failWith error
}

func newFakeCatalog(products ...product.Product) *fakeCatalog {
	c := &fakeCatalog{products: map[int64]product.Product{}}
	for _, p := range products {
		c.products[p.ID] = p
	}
	return c
}

func (c *fakeCatalog) Get(_ context.Context, id int64) (product.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failWith != nil {
		return product.Product{}, c.failWith
	}
	p, ok := c.products[id]
	if !ok || !p.Active {
		return product.Product{}, fmt.Errorf("%w: product %d", catalog.ErrNotFound, id)
	}
	return p, nil
}

func (c *fakeCatalog) put(p product.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.products[p.ID] = p
}

func (c *fakeCatalog) remove(id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.products, id)
}

// memSnapshots keeps the persisted generation in memory and can be
// told to fail saves or loads.
type memSnapshots struct {
	mu       sync.Mutex
	current  *snapshot.Snapshot
	saveErr  error
	loadErr  error
	saves    int
}

func (m *memSnapshots) Save(snap *snapshot.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.current = snap.Clone()
	m.saves++
	return nil
}

func (m *memSnapshots) Load(_ context.Context) (*snapshot.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	if m.current == nil {
		return nil, snapshot.ErrNotExist
	}
	return m.current.Clone(), nil
}

// recordingNotifier records every reload notification.
type recordingNotifier struct {
	mu      sync.Mutex
	actions []string
	ids     []int64
	err     error
}

func (n *recordingNotifier) NotifyReload(_ context.Context, action string, id int64) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.actions = append(n.actions, action)
	n.ids = append(n.ids, id)
	return nil
}

func (n *recordingNotifier) calls() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.actions...)
}

var errBoom = errors.New("boom")
