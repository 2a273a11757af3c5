package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fireclub/semsearch/domain/product"
	"github.com/fireclub/semsearch/domain/search"
	"github.com/fireclub/semsearch/infrastructure/provider"
)

func testProduct(id int64, name, desc, variant string) product.Product {
	return product.Product{
		ID:           id,
		Active:       true,
		Name:         name,
		Description:  desc,
		VariantCombo: variant,
	}
}

func newTestUpdater(t *testing.T, cat *fakeCatalog) (*Updater, *memSnapshots, *recordingNotifier) {
	t.Helper()
	snaps := &memSnapshots{}
	notifier := &recordingNotifier{}
	u := NewUpdater(context.Background(), cat, provider.NewStaticEmbedder(), snaps, notifier, search.Dimension, nil)
	return u, snaps, notifier
}

func requireConsistent(t *testing.T, u *Updater, want int) {
	t.Helper()
	stats := u.Stats()
	assert.Equal(t, want, stats.TotalProducts)
	assert.Equal(t, want, stats.VectorTotal)
	assert.Equal(t, want, stats.NextSlot)
	require.NoError(t, u.state.Validate())
}

func TestUpdater_AddIndexesProduct(t *testing.T) {
	cat := newFakeCatalog(testProduct(7, "Telefono", "Pantalla AMOLED", "negro"))
	u, snaps, notifier := newTestUpdater(t, cat)

	require.NoError(t, u.Add(context.Background(), 7))

	requireConsistent(t, u, 1)
	assert.Equal(t, []string{"add"}, notifier.calls())
	assert.Equal(t, 1, snaps.saves)
	assert.Equal(t, "Telefono Pantalla AMOLED negro", u.state.Corpus[7])
}

func TestUpdater_AddUnknownProductFails(t *testing.T) {
	u, snaps, _ := newTestUpdater(t, newFakeCatalog())

	err := u.Add(context.Background(), 99)
	require.ErrorIs(t, err, ErrNotFound)

	requireConsistent(t, u, 0)
	assert.Equal(t, 0, snaps.saves)
}

func TestUpdater_AddTwiceActsAsModify(t *testing.T) {
	cat := newFakeCatalog(testProduct(3, "Silla", "madera", ""))
	u, _, notifier := newTestUpdater(t, cat)
	ctx := context.Background()

	require.NoError(t, u.Add(ctx, 3))
	cat.put(testProduct(3, "Silla", "madera y metal", ""))
	require.NoError(t, u.Add(ctx, 3))

	requireConsistent(t, u, 1)
	assert.Equal(t, []string{"add", "update"}, notifier.calls())
	assert.Equal(t, "Silla madera y metal", u.state.Corpus[3])
}

func TestUpdater_ModifyUnknownActsAsAdd(t *testing.T) {
	cat := newFakeCatalog(testProduct(5, "Mesa", "roble", ""))
	u, _, notifier := newTestUpdater(t, cat)

	require.NoError(t, u.Modify(context.Background(), 5))

	requireConsistent(t, u, 1)
	assert.Equal(t, []string{"add"}, notifier.calls())
}

func TestUpdater_ModifyVanishedProductActsAsDelete(t *testing.T) {
	cat := newFakeCatalog(testProduct(5, "Mesa", "roble", ""))
	u, _, notifier := newTestUpdater(t, cat)
	ctx := context.Background()

	require.NoError(t, u.Add(ctx, 5))
	cat.remove(5)
	require.NoError(t, u.Modify(ctx, 5))

	requireConsistent(t, u, 0)
	assert.Equal(t, []string{"add", "delete"}, notifier.calls())
}

func TestUpdater_DeleteRemovesAndRemapsSlots(t *testing.T) {
	cat := newFakeCatalog(
		testProduct(1, "uno", "primero", ""),
		testProduct(2, "dos", "segundo", ""),
		testProduct(3, "tres", "tercero", ""),
	)
	u, _, _ := newTestUpdater(t, cat)
	ctx := context.Background()

	require.NoError(t, u.Add(ctx, 1))
	require.NoError(t, u.Add(ctx, 2))
	require.NoError(t, u.Add(ctx, 3))
	require.NoError(t, u.Delete(ctx, 2))

	requireConsistent(t, u, 2)
	assert.Equal(t, 0, u.state.IDToSlot[1])
	assert.Equal(t, 1, u.state.IDToSlot[3])
	_, indexed := u.state.Products[2]
	assert.False(t, indexed)
}

func TestUpdater_DeleteAbsentIsNoOp(t *testing.T) {
	u, snaps, notifier := newTestUpdater(t, newFakeCatalog())

	require.NoError(t, u.Delete(context.Background(), 42))

	assert.Empty(t, notifier.calls())
	assert.Equal(t, 0, snaps.saves)
}

func TestUpdater_RollbackOnSaveFailure(t *testing.T) {
	cat := newFakeCatalog(
		testProduct(1, "uno", "primero", ""),
		testProduct(2, "dos", "segundo", ""),
	)
	u, snaps, notifier := newTestUpdater(t, cat)
	ctx := context.Background()

	require.NoError(t, u.Add(ctx, 1))

	snaps.saveErr = errBoom
	err := u.Add(ctx, 2)
	require.ErrorIs(t, err, ErrInternal)

	// Core rolled back to the last persisted generation.
	requireConsistent(t, u, 1)
	_, indexed := u.state.Products[2]
	assert.False(t, indexed)
	assert.Equal(t, []string{"add"}, notifier.calls())
}

func TestUpdater_RollbackWithoutSnapshotRestoresMemoryCopy(t *testing.T) {
	cat := newFakeCatalog(testProduct(1, "uno", "primero", ""))
	snaps := &memSnapshots{saveErr: errBoom}
	notifier := &recordingNotifier{}
	u := NewUpdater(context.Background(), cat, provider.NewStaticEmbedder(), snaps, notifier, search.Dimension, nil)

	err := u.Add(context.Background(), 1)
	require.ErrorIs(t, err, ErrInternal)

	requireConsistent(t, u, 0)
	assert.Empty(t, notifier.calls())
}

func TestUpdater_CatalogOutageIsUnavailable(t *testing.T) {
	cat := newFakeCatalog()
	cat.failWith = errBoom
	u, _, _ := newTestUpdater(t, cat)

	err := u.Add(context.Background(), 1)
	require.ErrorIs(t, err, ErrUnavailable)
	requireConsistent(t, u, 0)
}

func TestUpdater_NotifyFailureDoesNotFailMutation(t *testing.T) {
	cat := newFakeCatalog(testProduct(1, "uno", "primero", ""))
	snaps := &memSnapshots{}
	notifier := &recordingNotifier{err: errBoom}
	u := NewUpdater(context.Background(), cat, provider.NewStaticEmbedder(), snaps, notifier, search.Dimension, nil)

	require.NoError(t, u.Add(context.Background(), 1))
	requireConsistent(t, u, 1)
	assert.Equal(t, 1, snaps.saves)
}

func TestUpdater_RestoresStateFromSnapshot(t *testing.T) {
	cat := newFakeCatalog(testProduct(9, "Lampara", "LED calida", "blanco"))
	u, snaps, _ := newTestUpdater(t, cat)
	require.NoError(t, u.Add(context.Background(), 9))

	restored := NewUpdater(context.Background(), cat, provider.NewStaticEmbedder(), snaps, &recordingNotifier{}, search.Dimension, nil)

	requireConsistent(t, restored, 1)
	assert.Equal(t, "Lampara LED calida blanco", restored.state.Corpus[9])
}
