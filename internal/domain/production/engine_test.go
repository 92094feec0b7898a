package production

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
	"quimstock/internal/domain/formula"
)

// --- fakes ---

type fakeTxManager struct {
	// conflictOnCommit simulates losing a serializable transaction at commit.
	conflictOnCommit bool
	readOnlyRuns     int
}

func (m *fakeTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (m *fakeTxManager) ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	m.readOnlyRuns++
	return fn(ctx)
}

func (m *fakeTxManager) Serializable(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := fn(ctx); err != nil {
		return err
	}
	if m.conflictOnCommit {
		return apperror.NewConcurrentModification("transaction", nil)
	}
	return nil
}

type fakeItemStore struct {
	items map[id.ID]*entity.StockedItem
}

func (s *fakeItemStore) Get(_ context.Context, itemID id.ID) (*entity.StockedItem, error) {
	it, ok := s.items[itemID]
	if !ok {
		return nil, apperror.NewNotFound("item", itemID.String())
	}
	return it, nil
}

func (s *fakeItemStore) GetForUpdate(ctx context.Context, itemID id.ID) (*entity.StockedItem, error) {
	return s.Get(ctx, itemID)
}

type fakeRegistry struct {
	formulas map[id.ID]*formula.Formula
}

func (r *fakeRegistry) Get(_ context.Context, reagentID id.ID) (*formula.Formula, error) {
	f, ok := r.formulas[reagentID]
	if !ok {
		return nil, apperror.NewNoFormula(reagentID.String())
	}
	return f, nil
}

func (r *fakeRegistry) DiscardIfIncomplete(_ context.Context, f *formula.Formula) (bool, error) {
	if !f.Incomplete() {
		return false, nil
	}
	delete(r.formulas, f.ReagentID)
	return true, nil
}

type fakeLedger struct {
	items    *fakeItemStore
	booked   []entity.Movement
	failItem id.ID
}

func (l *fakeLedger) Adjust(_ context.Context, itemID id.ID, kind entity.MovementKind, qty types.Quantity, observation string, lotCode *string) (*entity.Movement, error) {
	if itemID == l.failItem {
		return nil, apperror.NewInternal(nil)
	}
	item, ok := l.items.items[itemID]
	if !ok {
		return nil, apperror.NewNotFound("item", itemID.String())
	}
	m := entity.NewMovement(item, kind, qty, observation, "tester", lotCode)
	newQty := item.Quantity + m.SignedQuantity()
	if newQty.IsNegative() {
		return nil, apperror.NewInsufficientStock(itemID.String(), qty.String(), item.Quantity.String())
	}
	item.Quantity = newQty
	l.booked = append(l.booked, m)
	return &m, nil
}

type fakeLots struct {
	code   string
	issued int
}

func (l *fakeLots) NextCode(_ context.Context, _ security.Area, _ int) (string, error) {
	l.issued++
	return l.code, nil
}

// --- fixture ---

type fixture struct {
	engine   *Engine
	tx       *fakeTxManager
	items    *fakeItemStore
	registry *fakeRegistry
	ledger   *fakeLedger
	lots     *fakeLots
	reagent  *entity.StockedItem
	matA     *entity.StockedItem
	matB     *entity.StockedItem
}

// newFixture wires a reagent with a complete two-ingredient formula:
// 0.5 g of A and 2 ml of B per produced unit.
func newFixture() *fixture {
	reagent := entity.NewStockedItem(entity.KindReagent, "Buffer A", "BUF-A", entity.UnitMilliliters, 0, security.AreaLab)
	matA := entity.NewStockedItem(entity.KindMaterial, "Sodium Chloride", "NaCl-01", entity.UnitGrams, 0, security.AreaLab)
	matB := entity.NewStockedItem(entity.KindMaterial, "Distilled Water", "H2O-01", entity.UnitMilliliters, 0, security.AreaLab)
	matA.Quantity = types.NewQuantityFromInt(100)
	matB.Quantity = types.NewQuantityFromInt(100)

	f := &formula.Formula{
		ID:        id.New(),
		ReagentID: reagent.ID,
		Area:      security.AreaLab,
		Ingredients: []formula.Ingredient{
			{MaterialID: matA.ID, Position: 0, Ratio: types.MustRatio("0.5")},
			{MaterialID: matB.ID, Position: 1, Ratio: types.MustRatio("2")},
		},
	}

	items := &fakeItemStore{items: map[id.ID]*entity.StockedItem{
		reagent.ID: reagent,
		matA.ID:    matA,
		matB.ID:    matB,
	}}
	registry := &fakeRegistry{formulas: map[id.ID]*formula.Formula{reagent.ID: f}}
	ledger := &fakeLedger{items: items}
	lots := &fakeLots{code: "Q2400040007"}
	txm := &fakeTxManager{}

	return &fixture{
		engine:   NewEngine(items, registry, ledger, lots, txm),
		tx:       txm,
		items:    items,
		registry: registry,
		ledger:   ledger,
		lots:     lots,
		reagent:  reagent,
		matA:     matA,
		matB:     matB,
	}
}

func produce(fx *fixture, qty int64) (*Result, error) {
	return fx.engine.Produce(context.Background(), Request{
		ReagentID:      fx.reagent.ID,
		Quantity:       types.NewQuantityFromInt(qty),
		AnalysisNumber: 7,
	})
}

// --- tests ---

func TestProduce_Success(t *testing.T) {
	fx := newFixture()

	res, err := produce(fx, 10)
	require.NoError(t, err)

	assert.Equal(t, "Q2400040007", res.LotCode)
	assert.Equal(t, types.NewQuantityFromInt(95), fx.matA.Quantity)  // 100 - 10*0.5
	assert.Equal(t, types.NewQuantityFromInt(80), fx.matB.Quantity)  // 100 - 10*2
	assert.Equal(t, types.NewQuantityFromInt(10), fx.reagent.Quantity)

	require.Len(t, res.Consumed, 2)
	assert.Equal(t, fx.matA.ID, res.Consumed[0].ItemID)
	assert.Nil(t, res.Consumed[0].LotCode)

	require.NotNil(t, res.Produced.LotCode)
	assert.Equal(t, "Q2400040007", *res.Produced.LotCode)
	assert.Equal(t, entity.MovementProduction, res.Produced.Kind)
	assert.Contains(t, res.Produced.Observation, "Buffer A")
	assert.Equal(t, 1, fx.lots.issued)
}

func TestProduce_CustomObservationOnProducedEntry(t *testing.T) {
	fx := newFixture()

	res, err := fx.engine.Produce(context.Background(), Request{
		ReagentID:      fx.reagent.ID,
		Quantity:       types.NewQuantityFromInt(5),
		AnalysisNumber: 3,
		Observation:    "QC batch for client X",
	})
	require.NoError(t, err)

	assert.Equal(t, "QC batch for client X", res.Produced.Observation)
	// Material exits keep the generated text naming the reagent.
	require.Len(t, res.Consumed, 2)
	assert.Contains(t, res.Consumed[0].Observation, "Buffer A")
}

func TestProduce_FractionalRatios(t *testing.T) {
	fx := newFixture()

	_, err := fx.engine.Produce(context.Background(), Request{
		ReagentID:      fx.reagent.ID,
		Quantity:       types.NewQuantityFromFloat64(2.5),
		AnalysisNumber: 1,
	})
	require.NoError(t, err)

	// 100 - 2.5*0.5 and 100 - 2.5*2.
	assert.Equal(t, types.NewQuantityFromFloat64(98.75), fx.matA.Quantity)
	assert.Equal(t, types.NewQuantityFromInt(95), fx.matB.Quantity)
}

func TestProduce_NoFormula(t *testing.T) {
	fx := newFixture()
	delete(fx.registry.formulas, fx.reagent.ID)

	_, err := produce(fx, 1)
	assert.True(t, apperror.IsCode(err, apperror.CodeNoFormula))
	assert.Equal(t, 0, fx.lots.issued)
}

func TestProduce_IncompleteFormulaDiscarded(t *testing.T) {
	fx := newFixture()
	fx.registry.formulas[fx.reagent.ID].Ingredients[1].Ratio = types.ZeroRatio()

	_, err := produce(fx, 1)
	assert.True(t, apperror.IsCode(err, apperror.CodeFormulaIncomplete))

	// The dangling formula is gone; the next attempt reports NO_FORMULA.
	_, err = produce(fx, 1)
	assert.True(t, apperror.IsCode(err, apperror.CodeNoFormula))
}

func TestProduce_InsufficientStockLeavesStoreUntouched(t *testing.T) {
	fx := newFixture()
	fx.matB.Quantity = types.NewQuantityFromInt(19) // needs 20 for qty 10

	_, err := produce(fx, 10)
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeInsufficientStock, appErr.Code)
	assert.Equal(t, "Distilled Water", appErr.Details["material"])

	// No deduction, no produced entry, no counter advance.
	assert.Equal(t, types.NewQuantityFromInt(100), fx.matA.Quantity)
	assert.Equal(t, types.NewQuantityFromInt(19), fx.matB.Quantity)
	assert.True(t, fx.reagent.Quantity.IsZero())
	assert.Empty(t, fx.ledger.booked)
	assert.Equal(t, 0, fx.lots.issued)
}

func TestProduce_ExactStockSucceeds(t *testing.T) {
	fx := newFixture()
	fx.matB.Quantity = types.NewQuantityFromInt(20)

	_, err := produce(fx, 10)
	require.NoError(t, err)
	assert.True(t, fx.matB.Quantity.IsZero())
}

func TestProduce_SerializationLossMapsToAborted(t *testing.T) {
	fx := newFixture()
	fx.tx.conflictOnCommit = true

	_, err := produce(fx, 1)
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeProductionAborted, appErr.Code)
	// The losing serialization error is preserved as cause.
	assert.NotNil(t, appErr.Err)
}

func TestProduce_Validation(t *testing.T) {
	fx := newFixture()

	_, err := fx.engine.Produce(context.Background(), Request{ReagentID: fx.reagent.ID, Quantity: 0, AnalysisNumber: 1})
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))

	_, err = fx.engine.Produce(context.Background(), Request{ReagentID: fx.reagent.ID, Quantity: types.NewQuantityFromInt(1), AnalysisNumber: 0})
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))

	_, err = fx.engine.Produce(context.Background(), Request{ReagentID: fx.matA.ID, Quantity: types.NewQuantityFromInt(1), AnalysisNumber: 1})
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
}

func TestConsult_Feasible(t *testing.T) {
	fx := newFixture()

	feas, err := fx.engine.Consult(context.Background(), fx.reagent.ID, types.NewQuantityFromInt(10))
	require.NoError(t, err)
	assert.True(t, feas.Feasible)
	assert.Empty(t, feas.Shortages)

	// Read-only snapshot: nothing moved, no counter touched.
	assert.Equal(t, types.NewQuantityFromInt(100), fx.matA.Quantity)
	assert.Equal(t, 0, fx.lots.issued)
	assert.Equal(t, 1, fx.tx.readOnlyRuns)
}

func TestConsult_ReportsAllShortages(t *testing.T) {
	fx := newFixture()
	fx.matA.Quantity = types.NewQuantityFromInt(1)
	fx.matB.Quantity = types.NewQuantityFromInt(5)

	feas, err := fx.engine.Consult(context.Background(), fx.reagent.ID, types.NewQuantityFromInt(10))
	require.NoError(t, err)
	assert.False(t, feas.Feasible)
	require.Len(t, feas.Shortages, 2)
	assert.Equal(t, types.NewQuantityFromInt(5), feas.Shortages[0].Required)
	assert.Equal(t, types.NewQuantityFromInt(1), feas.Shortages[0].Available)
	assert.Equal(t, types.NewQuantityFromInt(20), feas.Shortages[1].Required)
}

func TestConsult_IncompleteFormulaDiscarded(t *testing.T) {
	fx := newFixture()
	fx.registry.formulas[fx.reagent.ID].Ingredients[0].Ratio = types.ZeroRatio()

	_, err := fx.engine.Consult(context.Background(), fx.reagent.ID, types.NewQuantityFromInt(1))
	assert.True(t, apperror.IsCode(err, apperror.CodeFormulaIncomplete))

	// The dangling formula self-heals here too, outside the snapshot.
	_, ok := fx.registry.formulas[fx.reagent.ID]
	assert.False(t, ok)

	// Stock and counter stay untouched.
	assert.Equal(t, types.NewQuantityFromInt(100), fx.matA.Quantity)
	assert.Equal(t, 0, fx.lots.issued)
}
