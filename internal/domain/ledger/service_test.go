package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quimstock/internal/core/apperror"
	"quimstock/internal/core/entity"
	"quimstock/internal/core/id"
	"quimstock/internal/core/security"
	"quimstock/internal/core/types"
)

// --- fakes ---

type fakeTxManager struct{}

func (fakeTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeItemStore struct {
	items map[id.ID]*entity.StockedItem
}

func newFakeItemStore(items ...*entity.StockedItem) *fakeItemStore {
	s := &fakeItemStore{items: make(map[id.ID]*entity.StockedItem)}
	for _, it := range items {
		s.items[it.ID] = it
	}
	return s
}

func (s *fakeItemStore) GetForUpdate(_ context.Context, itemID id.ID) (*entity.StockedItem, error) {
	it, ok := s.items[itemID]
	if !ok {
		return nil, apperror.NewNotFound("item", itemID.String())
	}
	cp := *it
	return &cp, nil
}

func (s *fakeItemStore) UpdateQuantity(_ context.Context, itemID id.ID, quantity int64) error {
	it, ok := s.items[itemID]
	if !ok {
		return apperror.NewNotFound("item", itemID.String())
	}
	it.Quantity = types.NewQuantityFromInt64Scaled(quantity)
	return nil
}

type fakeMovementRepo struct {
	appended []entity.Movement
	failNext error
}

func (r *fakeMovementRepo) Append(_ context.Context, m entity.Movement) error {
	if r.failNext != nil {
		err := r.failNext
		r.failNext = nil
		return err
	}
	r.appended = append(r.appended, m)
	return nil
}

func (r *fakeMovementRepo) ListByItem(_ context.Context, itemID id.ID, _ Filter) ([]entity.Movement, error) {
	var out []entity.Movement
	for i := len(r.appended) - 1; i >= 0; i-- {
		if r.appended[i].ItemID == itemID {
			out = append(out, r.appended[i])
		}
	}
	return out, nil
}

func (r *fakeMovementRepo) ListByArea(_ context.Context, area security.Area, _ Filter) ([]entity.Movement, error) {
	var out []entity.Movement
	for i := len(r.appended) - 1; i >= 0; i-- {
		if r.appended[i].Area == area {
			out = append(out, r.appended[i])
		}
	}
	return out, nil
}

func (r *fakeMovementRepo) List(_ context.Context, _ Filter) ([]entity.Movement, error) {
	out := make([]entity.Movement, len(r.appended))
	for i := range r.appended {
		out[len(r.appended)-1-i] = r.appended[i]
	}
	return out, nil
}

func (r *fakeMovementRepo) LastProductionAt(_ context.Context, area security.Area) (*time.Time, error) {
	for i := len(r.appended) - 1; i >= 0; i-- {
		m := r.appended[i]
		if m.Area == area && m.Kind == entity.MovementProduction {
			t := m.RecordedAt
			return &t, nil
		}
	}
	return nil, nil
}

func (r *fakeMovementRepo) DeleteByItem(_ context.Context, itemID id.ID) error {
	kept := r.appended[:0]
	for _, m := range r.appended {
		if m.ItemID != itemID {
			kept = append(kept, m)
		}
	}
	r.appended = kept
	return nil
}

// --- helpers ---

func testMaterial(qty int64) *entity.StockedItem {
	it := entity.NewStockedItem(entity.KindMaterial, "Sodium Chloride", "NaCl-01", entity.UnitGrams, types.NewQuantityFromInt(10), security.AreaLab)
	it.Quantity = types.NewQuantityFromInt(qty)
	return it
}

func newTestService(items *fakeItemStore, repo *fakeMovementRepo) *Service {
	return NewService(repo, items, fakeTxManager{})
}

// --- tests ---

func TestAdjust_EntryIncreasesStock(t *testing.T) {
	mat := testMaterial(100)
	store := newFakeItemStore(mat)
	repo := &fakeMovementRepo{}
	svc := newTestService(store, repo)

	m, err := svc.Adjust(context.Background(), mat.ID, entity.MovementEntry, types.NewQuantityFromInt(25), "supplier delivery", nil)
	require.NoError(t, err)

	assert.Equal(t, types.NewQuantityFromInt(125), store.items[mat.ID].Quantity)
	require.Len(t, repo.appended, 1)
	assert.Equal(t, entity.MovementEntry, m.Kind)
	assert.Equal(t, types.NewQuantityFromInt(25), m.Quantity)
}

func TestAdjust_ExitDecreasesStock(t *testing.T) {
	mat := testMaterial(100)
	store := newFakeItemStore(mat)
	svc := newTestService(store, &fakeMovementRepo{})

	_, err := svc.Adjust(context.Background(), mat.ID, entity.MovementExit, types.NewQuantityFromInt(40), "spill replacement", nil)
	require.NoError(t, err)
	assert.Equal(t, types.NewQuantityFromInt(60), store.items[mat.ID].Quantity)
}

func TestAdjust_ExactDrainToZeroAllowed(t *testing.T) {
	mat := testMaterial(100)
	store := newFakeItemStore(mat)
	svc := newTestService(store, &fakeMovementRepo{})

	_, err := svc.Adjust(context.Background(), mat.ID, entity.MovementExit, types.NewQuantityFromInt(100), "", nil)
	require.NoError(t, err)
	assert.True(t, store.items[mat.ID].Quantity.IsZero())
}

func TestAdjust_OverdrawRejected(t *testing.T) {
	mat := testMaterial(100)
	store := newFakeItemStore(mat)
	repo := &fakeMovementRepo{}
	svc := newTestService(store, repo)

	_, err := svc.Adjust(context.Background(), mat.ID, entity.MovementExit, types.NewQuantityFromFloat64(100.0001), "", nil)
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeInsufficientStock))

	// Store untouched on rejection.
	assert.Equal(t, types.NewQuantityFromInt(100), store.items[mat.ID].Quantity)
	assert.Empty(t, repo.appended)
}

func TestAdjust_NonPositiveQuantityRejected(t *testing.T) {
	mat := testMaterial(100)
	svc := newTestService(newFakeItemStore(mat), &fakeMovementRepo{})

	_, err := svc.Adjust(context.Background(), mat.ID, entity.MovementEntry, 0, "", nil)
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))

	_, err = svc.Adjust(context.Background(), mat.ID, entity.MovementEntry, types.NewQuantityFromInt(-5), "", nil)
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
}

func TestAdjust_UnknownItem(t *testing.T) {
	svc := newTestService(newFakeItemStore(), &fakeMovementRepo{})

	_, err := svc.Adjust(context.Background(), id.New(), entity.MovementEntry, types.NewQuantityFromInt(1), "", nil)
	assert.True(t, apperror.IsNotFound(err))
}

func TestAdjust_ProductionDirectionDependsOnItemKind(t *testing.T) {
	mat := testMaterial(100)
	reagent := entity.NewStockedItem(entity.KindReagent, "Buffer A", "BUF-A", entity.UnitMilliliters, 0, security.AreaLab)
	reagent.Quantity = types.NewQuantityFromInt(5)
	store := newFakeItemStore(mat, reagent)
	svc := newTestService(store, &fakeMovementRepo{})

	lot := "Q2400010001"
	_, err := svc.Adjust(context.Background(), mat.ID, entity.MovementProduction, types.NewQuantityFromInt(10), "", nil)
	require.NoError(t, err)
	_, err = svc.Adjust(context.Background(), reagent.ID, entity.MovementProduction, types.NewQuantityFromInt(10), "", &lot)
	require.NoError(t, err)

	assert.Equal(t, types.NewQuantityFromInt(90), store.items[mat.ID].Quantity)
	assert.Equal(t, types.NewQuantityFromInt(15), store.items[reagent.ID].Quantity)
}

func TestHistories(t *testing.T) {
	mat := testMaterial(100)
	store := newFakeItemStore(mat)
	repo := &fakeMovementRepo{}
	svc := newTestService(store, repo)

	_, err := svc.Adjust(context.Background(), mat.ID, entity.MovementEntry, types.NewQuantityFromInt(10), "first", nil)
	require.NoError(t, err)
	_, err = svc.Adjust(context.Background(), mat.ID, entity.MovementExit, types.NewQuantityFromInt(5), "second", nil)
	require.NoError(t, err)

	hist, err := svc.ItemHistory(context.Background(), mat.ID, Filter{})
	require.NoError(t, err)
	require.Len(t, hist, 2)
	// Newest first.
	assert.Equal(t, "second", hist[0].Observation)
	assert.Equal(t, "first", hist[1].Observation)

	byArea, err := svc.AreaHistory(context.Background(), security.AreaLab, Filter{})
	require.NoError(t, err)
	assert.Len(t, byArea, 2)

	_, err = svc.AreaHistory(context.Background(), "Office", Filter{})
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))

	all, err := svc.History(context.Background(), Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
