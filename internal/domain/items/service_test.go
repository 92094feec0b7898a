package items

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quimstock/internal/core/apperror"
	"quimstock/internal/core/entity"
	"quimstock/internal/core/id"
	"quimstock/internal/core/security"
	"quimstock/internal/core/types"
)

type fakeTxManager struct{}

func (fakeTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeItemRepo struct {
	items map[id.ID]*entity.StockedItem
}

func newFakeItemRepo() *fakeItemRepo {
	return &fakeItemRepo{items: make(map[id.ID]*entity.StockedItem)}
}

func (r *fakeItemRepo) Create(_ context.Context, item *entity.StockedItem) error {
	r.items[item.ID] = item
	return nil
}

func (r *fakeItemRepo) Get(_ context.Context, itemID id.ID) (*entity.StockedItem, error) {
	it, ok := r.items[itemID]
	if !ok {
		return nil, apperror.NewNotFound("item", itemID.String())
	}
	return it, nil
}

func (r *fakeItemRepo) GetByCode(_ context.Context, area security.Area, kind entity.ItemKind, code string) (*entity.StockedItem, error) {
	for _, it := range r.items {
		if it.Area == area && it.Kind == kind && it.Code == code {
			return it, nil
		}
	}
	return nil, apperror.NewNotFound("item", code)
}

func (r *fakeItemRepo) List(_ context.Context, area security.Area, kind entity.ItemKind) ([]entity.StockedItem, error) {
	var out []entity.StockedItem
	for _, it := range r.items {
		if it.Area == area && it.Kind == kind {
			out = append(out, *it)
		}
	}
	return out, nil
}

func (r *fakeItemRepo) ListLowStock(_ context.Context, area security.Area) ([]entity.StockedItem, error) {
	var out []entity.StockedItem
	for _, it := range r.items {
		if it.Area == area && it.IsLowStock() {
			out = append(out, *it)
		}
	}
	return out, nil
}

func (r *fakeItemRepo) Update(_ context.Context, item *entity.StockedItem) error {
	r.items[item.ID] = item
	return nil
}

func (r *fakeItemRepo) Delete(_ context.Context, itemID id.ID) error {
	delete(r.items, itemID)
	return nil
}

type fakeFormulaRegistry struct {
	inUse          map[id.ID]bool
	deletedReagent []id.ID
}

func (f *fakeFormulaRegistry) MaterialInUse(_ context.Context, materialID id.ID) (bool, error) {
	return f.inUse[materialID], nil
}

func (f *fakeFormulaRegistry) Delete(_ context.Context, reagentID id.ID) error {
	f.deletedReagent = append(f.deletedReagent, reagentID)
	return nil
}

type fakePurger struct {
	purged []id.ID
}

func (p *fakePurger) DeleteByItem(_ context.Context, itemID id.ID) error {
	p.purged = append(p.purged, itemID)
	return nil
}

type fakeAdjuster struct {
	repo   *fakeItemRepo
	booked []entity.Movement
}

func (a *fakeAdjuster) Adjust(_ context.Context, itemID id.ID, kind entity.MovementKind, qty types.Quantity, observation string, lotCode *string) (*entity.Movement, error) {
	item := a.repo.items[itemID]
	m := entity.NewMovement(item, kind, qty, observation, "tester", lotCode)
	item.Quantity += m.SignedQuantity()
	a.booked = append(a.booked, m)
	return &m, nil
}

type fixture struct {
	svc      *Service
	repo     *fakeItemRepo
	formulas *fakeFormulaRegistry
	purger   *fakePurger
	adjuster *fakeAdjuster
}

func newFixture() *fixture {
	repo := newFakeItemRepo()
	formulas := &fakeFormulaRegistry{inUse: make(map[id.ID]bool)}
	purger := &fakePurger{}
	adjuster := &fakeAdjuster{repo: repo}
	return &fixture{
		svc:      NewService(repo, formulas, purger, adjuster, fakeTxManager{}),
		repo:     repo,
		formulas: formulas,
		purger:   purger,
		adjuster: adjuster,
	}
}

func validInput() CreateInput {
	return CreateInput{
		Name:     "Sodium Chloride",
		Code:     "NaCl-01",
		Unit:     entity.UnitGrams,
		LowStock: types.NewQuantityFromInt(10),
	}
}

func TestCreate_StartsWithZeroStock(t *testing.T) {
	fx := newFixture()

	item, err := fx.svc.Create(context.Background(), security.AreaLab, entity.KindMaterial, validInput())
	require.NoError(t, err)
	assert.True(t, item.Quantity.IsZero())
	assert.Empty(t, fx.adjuster.booked)
}

func TestCreate_InitialQuantityBookedAsEntry(t *testing.T) {
	fx := newFixture()

	in := validInput()
	in.InitialQuantity = types.NewQuantityFromInt(50)
	item, err := fx.svc.Create(context.Background(), security.AreaLab, entity.KindMaterial, in)
	require.NoError(t, err)

	assert.Equal(t, types.NewQuantityFromInt(50), item.Quantity)
	require.Len(t, fx.adjuster.booked, 1)
	assert.Equal(t, entity.MovementEntry, fx.adjuster.booked[0].Kind)
	assert.Equal(t, "Initial stock", fx.adjuster.booked[0].Observation)
}

func TestCreate_DuplicateCodeRejected(t *testing.T) {
	fx := newFixture()

	_, err := fx.svc.Create(context.Background(), security.AreaLab, entity.KindMaterial, validInput())
	require.NoError(t, err)

	_, err = fx.svc.Create(context.Background(), security.AreaLab, entity.KindMaterial, validInput())
	assert.True(t, apperror.IsCode(err, apperror.CodeDuplicate))

	// Same code is fine in the other area or as the other kind.
	_, err = fx.svc.Create(context.Background(), security.AreaWarehouse, entity.KindMaterial, validInput())
	assert.NoError(t, err)
	_, err = fx.svc.Create(context.Background(), security.AreaLab, entity.KindReagent, validInput())
	assert.NoError(t, err)
}

func TestCreate_Validation(t *testing.T) {
	fx := newFixture()

	in := validInput()
	in.Name = ""
	_, err := fx.svc.Create(context.Background(), security.AreaLab, entity.KindMaterial, in)
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))

	in = validInput()
	in.Unit = "barrel"
	_, err = fx.svc.Create(context.Background(), security.AreaLab, entity.KindMaterial, in)
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))

	in = validInput()
	in.InitialQuantity = types.NewQuantityFromInt(-1)
	_, err = fx.svc.Create(context.Background(), security.AreaLab, entity.KindMaterial, in)
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
}

func TestGet_KindAndAreaMustMatch(t *testing.T) {
	fx := newFixture()

	item, err := fx.svc.Create(context.Background(), security.AreaLab, entity.KindMaterial, validInput())
	require.NoError(t, err)

	_, err = fx.svc.Get(context.Background(), security.AreaLab, entity.KindMaterial, item.ID)
	assert.NoError(t, err)

	_, err = fx.svc.Get(context.Background(), security.AreaLab, entity.KindReagent, item.ID)
	assert.True(t, apperror.IsNotFound(err))

	_, err = fx.svc.Get(context.Background(), security.AreaWarehouse, entity.KindMaterial, item.ID)
	assert.True(t, apperror.IsNotFound(err))
}

func TestUpdate_EditsCatalogFields(t *testing.T) {
	fx := newFixture()

	item, err := fx.svc.Create(context.Background(), security.AreaLab, entity.KindMaterial, validInput())
	require.NoError(t, err)
	oldVersion := item.Version

	updated, err := fx.svc.Update(context.Background(), security.AreaLab, entity.KindMaterial, item.ID, UpdateInput{
		Name:     "Sodium Chloride p.a.",
		Code:     "NaCl-02",
		Unit:     entity.UnitKilograms,
		LowStock: types.NewQuantityFromInt(5),
	})
	require.NoError(t, err)
	assert.Equal(t, "Sodium Chloride p.a.", updated.Name)
	assert.Equal(t, "NaCl-02", updated.Code)
	assert.Greater(t, updated.Version, oldVersion)
}

func TestUpdate_CodeCollision(t *testing.T) {
	fx := newFixture()

	_, err := fx.svc.Create(context.Background(), security.AreaLab, entity.KindMaterial, validInput())
	require.NoError(t, err)

	other := validInput()
	other.Code = "KCl-01"
	item, err := fx.svc.Create(context.Background(), security.AreaLab, entity.KindMaterial, other)
	require.NoError(t, err)

	_, err = fx.svc.Update(context.Background(), security.AreaLab, entity.KindMaterial, item.ID, UpdateInput{
		Name:     item.Name,
		Code:     "NaCl-01",
		Unit:     item.Unit,
		LowStock: item.LowStock,
	})
	assert.True(t, apperror.IsCode(err, apperror.CodeDuplicate))
}

func TestDelete_MaterialInUseProtected(t *testing.T) {
	fx := newFixture()

	item, err := fx.svc.Create(context.Background(), security.AreaLab, entity.KindMaterial, validInput())
	require.NoError(t, err)
	fx.formulas.inUse[item.ID] = true

	err = fx.svc.Delete(context.Background(), security.AreaLab, entity.KindMaterial, item.ID)
	assert.True(t, apperror.IsCode(err, apperror.CodeMaterialInUse))
	_, ok := fx.repo.items[item.ID]
	assert.True(t, ok)
}

func TestDelete_MaterialPurgesHistory(t *testing.T) {
	fx := newFixture()

	item, err := fx.svc.Create(context.Background(), security.AreaLab, entity.KindMaterial, validInput())
	require.NoError(t, err)

	require.NoError(t, fx.svc.Delete(context.Background(), security.AreaLab, entity.KindMaterial, item.ID))
	assert.Equal(t, []id.ID{item.ID}, fx.purger.purged)
	_, ok := fx.repo.items[item.ID]
	assert.False(t, ok)
}

func TestDelete_ReagentDropsFormula(t *testing.T) {
	fx := newFixture()

	item, err := fx.svc.Create(context.Background(), security.AreaLab, entity.KindReagent, validInput())
	require.NoError(t, err)

	require.NoError(t, fx.svc.Delete(context.Background(), security.AreaLab, entity.KindReagent, item.ID))
	assert.Equal(t, []id.ID{item.ID}, fx.formulas.deletedReagent)
	assert.Equal(t, []id.ID{item.ID}, fx.purger.purged)
}

func TestLowStock(t *testing.T) {
	fx := newFixture()

	in := validInput()
	in.InitialQuantity = types.NewQuantityFromInt(5) // below threshold 10
	low, err := fx.svc.Create(context.Background(), security.AreaLab, entity.KindMaterial, in)
	require.NoError(t, err)

	in = validInput()
	in.Code = "KCl-01"
	in.InitialQuantity = types.NewQuantityFromInt(100)
	_, err = fx.svc.Create(context.Background(), security.AreaLab, entity.KindMaterial, in)
	require.NoError(t, err)

	items, err := fx.svc.LowStock(context.Background(), security.AreaLab)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, low.ID, items[0].ID)
}
