package lot

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quimstock/internal/core/apperror"
	"quimstock/internal/core/security"
)

type fakeTxManager struct{}

func (fakeTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeCounterRepo struct {
	counters map[security.Area]int64
}

func (r *fakeCounterRepo) GetForUpdate(_ context.Context, area security.Area) (int64, error) {
	return r.counters[area], nil
}

func (r *fakeCounterRepo) Save(_ context.Context, area security.Area, value int64) error {
	r.counters[area] = value
	return nil
}

type fakeProductionLog struct {
	lastAt map[security.Area]*time.Time
}

func (l *fakeProductionLog) LastProductionAt(_ context.Context, area security.Area) (*time.Time, error) {
	return l.lastAt[area], nil
}

func newTestService(counters map[security.Area]int64, lastAt map[security.Area]*time.Time, now time.Time) (*Service, *fakeCounterRepo) {
	if counters == nil {
		counters = make(map[security.Area]int64)
	}
	if lastAt == nil {
		lastAt = make(map[security.Area]*time.Time)
	}
	repo := &fakeCounterRepo{counters: counters}
	svc := NewService(repo, &fakeProductionLog{lastAt: lastAt}, fakeTxManager{})
	svc.now = func() time.Time { return now }
	return svc, repo
}

func TestNextCode_FirstEver(t *testing.T) {
	now := time.Date(2024, time.March, 5, 10, 0, 0, 0, time.UTC)
	svc, repo := newTestService(nil, nil, now)

	code, err := svc.NextCode(context.Background(), security.AreaLab, 12)
	require.NoError(t, err)
	assert.Equal(t, "Q2400010012", code)
	assert.Equal(t, int64(1), repo.counters[security.AreaLab])
}

func TestNextCode_SameYearIncrements(t *testing.T) {
	now := time.Date(2024, time.June, 10, 12, 0, 0, 0, time.UTC)
	last := time.Date(2024, time.May, 1, 9, 0, 0, 0, time.UTC)
	svc, repo := newTestService(
		map[security.Area]int64{security.AreaLab: 3},
		map[security.Area]*time.Time{security.AreaLab: &last},
		now,
	)

	code, err := svc.NextCode(context.Background(), security.AreaLab, 7)
	require.NoError(t, err)
	assert.Equal(t, "Q2400040007", code)
	assert.Equal(t, int64(4), repo.counters[security.AreaLab])
}

func TestNextCode_YearRolloverResets(t *testing.T) {
	now := time.Date(2025, time.January, 2, 8, 0, 0, 0, time.UTC)
	last := time.Date(2024, time.December, 30, 17, 0, 0, 0, time.UTC)
	svc, repo := newTestService(
		map[security.Area]int64{security.AreaWarehouse: 851},
		map[security.Area]*time.Time{security.AreaWarehouse: &last},
		now,
	)

	code, err := svc.NextCode(context.Background(), security.AreaWarehouse, 3)
	require.NoError(t, err)
	assert.Equal(t, "Q2500010003", code)
	assert.Equal(t, int64(1), repo.counters[security.AreaWarehouse])
}

func TestNextCode_AreasAreIndependent(t *testing.T) {
	now := time.Date(2024, time.June, 10, 12, 0, 0, 0, time.UTC)
	last := time.Date(2024, time.May, 1, 9, 0, 0, 0, time.UTC)
	svc, repo := newTestService(
		map[security.Area]int64{security.AreaLab: 9},
		map[security.Area]*time.Time{security.AreaLab: &last},
		now,
	)

	_, err := svc.NextCode(context.Background(), security.AreaWarehouse, 1)
	require.NoError(t, err)

	assert.Equal(t, int64(9), repo.counters[security.AreaLab])
	assert.Equal(t, int64(1), repo.counters[security.AreaWarehouse])
}

func TestNextCode_Validation(t *testing.T) {
	svc, _ := newTestService(nil, nil, time.Now())

	_, err := svc.NextCode(context.Background(), "Office", 1)
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))

	_, err = svc.NextCode(context.Background(), security.AreaLab, 0)
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
}
