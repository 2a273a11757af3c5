package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/fireclub/semsearch/domain/product"
	"github.com/fireclub/semsearch/domain/search"
	"github.com/fireclub/semsearch/infrastructure/catalog"
	"github.com/fireclub/semsearch/infrastructure/snapshot"
	"github.com/fireclub/semsearch/infrastructure/vector"
)

// notifyTimeout bounds the reload notification to the search service.
const notifyTimeout = 5 * time.Second

// Mutation actions reported to the search service.
const (
	actionAdd    = "add"
	actionUpdate = "update"
	actionDelete = "delete"
)

// SnapshotStore persists and restores complete index generations.
type SnapshotStore interface {
	Save(snap *snapshot.Snapshot) error
	Load(ctx context.Context) (*snapshot.Snapshot, error)
}

// Notifier tells the search service to reload the snapshot pair.
type Notifier interface {
	NotifyReload(ctx context.Context, action string, productID int64) error
}

// Updater owns the writable index core. A single mutex serializes every
// mutation; each mutation either fully succeeds (state change, snapshot
// save, notify) or leaves the in-memory state unchanged.
type Updater struct {
	mu        sync.Mutex
	catalog   catalog.Store
	embedder  search.Embedder
	snapshots SnapshotStore
	notifier  Notifier
	logger    *slog.Logger
	dim       int

	state *snapshot.Snapshot
}

// NewUpdater creates an Updater, restoring in-memory state from the
// current snapshot when one exists. A missing or unreadable snapshot
// starts the core empty; the first successful mutation writes a fresh
// pair.
func NewUpdater(ctx context.Context, cat catalog.Store, embedder search.Embedder, snapshots SnapshotStore, notifier Notifier, dim int, logger *slog.Logger) *Updater {
	if logger == nil {
		logger = slog.Default()
	}

	u := &Updater{
		catalog:   cat,
		embedder:  embedder,
		snapshots: snapshots,
		notifier:  notifier,
		logger:    logger,
		dim:       dim,
	}

	snap, err := snapshots.Load(ctx)
	if err != nil {
		if !errors.Is(err, snapshot.ErrNotExist) {
			logger.Warn("could not restore snapshot, starting empty", "error", err)
		}
		snap = snapshot.Empty(dim)
	} else {
		logger.Info("index restored from snapshot",
			"products", len(snap.Products), "timestamp", snap.Timestamp)
	}
	u.state = snap
	return u
}

// Add indexes the product with the given id. Adding an id that is
// already indexed behaves as Modify (idempotent upsert).
func (u *Updater) Add(ctx context.Context, id int64) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.mutate(ctx, id, u.applyAdd)
}

// Modify regenerates the corpus text and embedding for an indexed
// product. Unknown ids fall through to Add; ids the catalog no longer
// returns fall through to Delete.
func (u *Updater) Modify(ctx context.Context, id int64) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.mutate(ctx, id, u.applyModify)
}

// Delete removes a product from the index. Deleting an id that is not
// indexed succeeds without touching the snapshot.
func (u *Updater) Delete(ctx context.Context, id int64) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.mutate(ctx, id, u.applyDelete)
}

// UpdaterStats is the mutation-side stats payload.
type UpdaterStats struct {
	TotalProducts int `json:"total_productos"`
	VectorTotal   int `json:"faiss_total"`
	NextSlot      int `json:"next_faiss_idx"`
	Dimension     int `json:"dimension"`
}

// Stats reports the current core counters.
func (u *Updater) Stats() UpdaterStats {
	u.mu.Lock()
	defer u.mu.Unlock()
	return UpdaterStats{
		TotalProducts: len(u.state.Products),
		VectorTotal:   u.state.Index.Count(),
		NextSlot:      u.state.NextSlot,
		Dimension:     u.dim,
	}
}

// mutate runs one operation under the already-held mutex, then
// persists and notifies. The pre-mutation state is retained so a failed
// snapshot save can roll the core back.
func (u *Updater) mutate(ctx context.Context, id int64, apply func(context.Context, int64) (string, error)) error {
	before := u.state.Clone()

	action, err := apply(ctx, id)
	if err != nil {
		// Operations only mutate state as their final step; on error
		// the state is untouched, but restore defensively anyway.
		u.state = before
		return err
	}
	if action == "" {
		// No-op (idempotent delete): nothing changed, nothing to save.
		return nil
	}

	u.state.Timestamp = time.Now().UTC()
	if err := u.snapshots.Save(u.state); err != nil {
		u.rollback(ctx, before)
		return fmt.Errorf("%w: save snapshot: %v", ErrInternal, err)
	}

	u.notify(action, id)
	return nil
}

// rollback restores the core to the last persisted generation, falling
// back to the pre-mutation copy when no snapshot can be read.
func (u *Updater) rollback(ctx context.Context, before *snapshot.Snapshot) {
	snap, err := u.snapshots.Load(ctx)
	if err != nil {
		u.logger.Warn("rollback: snapshot unreadable, restoring in-memory copy", "error", err)
		u.state = before
		return
	}
	u.state = snap
	u.logger.Info("rolled back to persisted snapshot", "timestamp", snap.Timestamp)
}

// notify is fire-and-forget: failures are logged, never surfaced. The
// next successful notification heals any lag.
func (u *Updater) notify(action string, id int64) {
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()

	if err := u.notifier.NotifyReload(ctx, action, id); err != nil {
		u.logger.Warn("search service notification failed",
			"action", action, "product_id", id, "error", err)
		return
	}
	u.logger.Info("search service notified", "action", action, "product_id", id)
}

func (u *Updater) applyAdd(ctx context.Context, id int64) (string, error) {
	if _, exists := u.state.Products[id]; exists {
		return u.applyModify(ctx, id)
	}

	p, err := u.fetch(ctx, id)
	if err != nil {
		return "", err
	}

	text := p.Text()
	vecs, err := u.embed(ctx, []string{text})
	if err != nil {
		return "", err
	}

	if err := u.state.Index.Add(vecs[0]); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInternal, err)
	}
	slot := u.state.NextSlot
	u.state.Products[id] = p
	u.state.Corpus[id] = text
	u.state.IDToSlot[id] = slot
	u.state.SlotToID[slot] = id
	u.state.NextSlot++

	return actionAdd, nil
}

func (u *Updater) applyModify(ctx context.Context, id int64) (string, error) {
	if _, exists := u.state.Products[id]; !exists {
		return u.applyAdd(ctx, id)
	}

	p, err := u.fetch(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// Product left the catalog (or went inactive): drop it.
			return u.applyDelete(ctx, id)
		}
		return "", err
	}

	products := cloneProducts(u.state.Products)
	corpus := cloneCorpus(u.state.Corpus)
	products[id] = p
	corpus[id] = p.Text()

	rebuilt, err := u.rebuild(ctx, products, corpus)
	if err != nil {
		return "", err
	}
	u.state = rebuilt
	return actionUpdate, nil
}

func (u *Updater) applyDelete(ctx context.Context, id int64) (string, error) {
	if _, exists := u.state.Products[id]; !exists {
		return "", nil
	}

	products := cloneProducts(u.state.Products)
	corpus := cloneCorpus(u.state.Corpus)
	delete(products, id)
	delete(corpus, id)

	rebuilt, err := u.rebuild(ctx, products, corpus)
	if err != nil {
		return "", err
	}
	u.state = rebuilt
	return actionDelete, nil
}

// rebuild reconstructs slot mappings and the vector index from the
// corpus. Entries are enumerated in ascending product id order so the
// resulting index layout is deterministic. The current state is not
// touched; the caller swaps in the result on success.
func (u *Updater) rebuild(ctx context.Context, products map[int64]product.Product, corpus map[int64]string) (*snapshot.Snapshot, error) {
	next := &snapshot.Snapshot{
		Products: products,
		Corpus:   corpus,
		IDToSlot: make(map[int64]int, len(corpus)),
		SlotToID: make(map[int]int64, len(corpus)),
		Index:    vector.New(u.dim),
	}
	if len(corpus) == 0 {
		return next, nil
	}

	ids := make([]int64, 0, len(corpus))
	for id := range corpus {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	texts := make([]string, len(ids))
	for slot, id := range ids {
		next.IDToSlot[id] = slot
		next.SlotToID[slot] = id
		texts[slot] = corpus[id]
	}

	vecs, err := u.embed(ctx, texts)
	if err != nil {
		return nil, err
	}
	if err := next.Index.Add(vecs...); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	next.NextSlot = len(ids)
	return next, nil
}

func (u *Updater) fetch(ctx context.Context, id int64) (product.Product, error) {
	p, err := u.catalog.Get(ctx, id)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return product.Product{}, fmt.Errorf("%w: product %d", ErrNotFound, id)
		}
		return product.Product{}, fmt.Errorf("%w: catalog: %v", ErrUnavailable, err)
	}
	return p, nil
}

func (u *Updater) embed(ctx context.Context, texts []string) ([][]float32, error) {
	vecs, err := u.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: embed: %v", ErrInternal, err)
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("%w: embedder returned %d vectors for %d texts", ErrInternal, len(vecs), len(texts))
	}
	return vecs, nil
}

func cloneProducts(src map[int64]product.Product) map[int64]product.Product {
	dst := make(map[int64]product.Product, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func cloneCorpus(src map[int64]string) map[int64]string {
	dst := make(map[int64]string, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
