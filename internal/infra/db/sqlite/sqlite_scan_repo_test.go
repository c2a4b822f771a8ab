//go:build !integration

package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/last9death/maturmarket/internal/domain"
	"github.com/last9death/maturmarket/internal/domain/model"
)

func TestScanRunRepoSaveAndFinish(t *testing.T) {
	db := openTestDB(t)
	repo := NewSQLiteScanRunRepo(db)
	ctx := context.Background()

	_, err := repo.FindLatest(ctx)
	require.ErrorIs(t, err, domain.ErrNotFound)

	run, err := model.NewScanRun(46375955)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, run))

	got, err := repo.FindLatest(ctx)
	require.NoError(t, err)
	require.Equal(t, run.ID, got.ID)
	require.EqualValues(t, 46375955, got.AdminTgID)
	require.Nil(t, got.FinishedAt)

	run.Finish(120, 17)
	require.NoError(t, repo.Save(ctx, run))

	got, err = repo.FindLatest(ctx)
	require.NoError(t, err)
	require.Equal(t, 120, got.Checked)
	require.Equal(t, 17, got.OutOfStock)
	require.NotNil(t, got.FinishedAt)
}

func TestScanRunRepoFindLatestPicksNewest(t *testing.T) {
	db := openTestDB(t)
	repo := NewSQLiteScanRunRepo(db)
	ctx := context.Background()

	old, err := model.NewScanRun(1)
	require.NoError(t, err)
	old.StartedAt = time.Now().Add(-2 * time.Hour)
	require.NoError(t, repo.Save(ctx, old))

	recent, err := model.NewScanRun(2)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, recent))

	got, err := repo.FindLatest(ctx)
	require.NoError(t, err)
	require.Equal(t, recent.ID, got.ID)
}
