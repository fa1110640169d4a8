package repository

import (
	"context"
	"testing"

	"github.com/asuogyaman/constituency-gateway/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createPendingContribution(t *testing.T, repo *ContributionRepository, reference string, amount float64) *model.Contribution {
	t.Helper()
	created, err := repo.Create(context.Background(), &model.Contribution{
		PaymentReference: reference,
		ContributorName:  "Ama Mensah",
		ContributorPhone: "0241234567",
		AmountGHS:        amount,
		Purpose:          "borehole project",
		Channel:          "card",
	})
	require.NoError(t, err)
	return created
}

func TestContributionRepository_Create(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewContributionRepository(db)
	ctx := context.Background()

	t.Run("create defaults to pending", func(t *testing.T) {
		created := createPendingContribution(t, repo, "REF-CREATE-1", 50.00)
		assert.NotZero(t, created.ID)
		assert.Equal(t, model.ContributionStatusPending, created.Status)
		assert.NotZero(t, created.CreatedAt)
	})

	t.Run("duplicate reference is rejected", func(t *testing.T) {
		createPendingContribution(t, repo, "REF-CREATE-2", 20.00)
		_, err := repo.Create(ctx, &model.Contribution{
			PaymentReference: "REF-CREATE-2",
			AmountGHS:        30.00,
		})
		assert.Error(t, err)
	})
}

func TestContributionRepository_GetByReference(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewContributionRepository(db)
	ctx := context.Background()

	createPendingContribution(t, repo, "REF-GET-1", 50.00)

	t.Run("found", func(t *testing.T) {
		c, err := repo.GetByReference(ctx, "REF-GET-1")
		require.NoError(t, err)
		assert.Equal(t, "REF-GET-1", c.PaymentReference)
		assert.InDelta(t, 50.00, c.AmountGHS, 0.001)
	})

	t.Run("unknown reference", func(t *testing.T) {
		_, err := repo.GetByReference(ctx, "REF-MISSING")
		assert.ErrorIs(t, err, ErrContributionNotFound)
	})
}

func TestContributionRepository_TransitionFromPending(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewContributionRepository(db)
	ctx := context.Background()

	t.Run("pending to completed", func(t *testing.T) {
		createPendingContribution(t, repo, "REF-CAS-1", 50.00)

		applied, err := repo.TransitionFromPending(ctx, "REF-CAS-1", model.ContributionStatusCompleted)
		require.NoError(t, err)
		assert.True(t, applied)

		c, err := repo.GetByReference(ctx, "REF-CAS-1")
		require.NoError(t, err)
		assert.Equal(t, model.ContributionStatusCompleted, c.Status)
	})

	t.Run("second transition is a no-op", func(t *testing.T) {
		createPendingContribution(t, repo, "REF-CAS-2", 50.00)

		applied, err := repo.TransitionFromPending(ctx, "REF-CAS-2", model.ContributionStatusCompleted)
		require.NoError(t, err)
		assert.True(t, applied)

		applied, err = repo.TransitionFromPending(ctx, "REF-CAS-2", model.ContributionStatusCompleted)
		require.NoError(t, err)
		assert.False(t, applied)
	})

	t.Run("failed does not clobber completed", func(t *testing.T) {
		createPendingContribution(t, repo, "REF-CAS-3", 50.00)

		applied, err := repo.TransitionFromPending(ctx, "REF-CAS-3", model.ContributionStatusCompleted)
		require.NoError(t, err)
		assert.True(t, applied)

		applied, err = repo.TransitionFromPending(ctx, "REF-CAS-3", model.ContributionStatusFailed)
		require.NoError(t, err)
		assert.False(t, applied)

		c, err := repo.GetByReference(ctx, "REF-CAS-3")
		require.NoError(t, err)
		assert.Equal(t, model.ContributionStatusCompleted, c.Status)
	})

	t.Run("unknown reference affects nothing", func(t *testing.T) {
		applied, err := repo.TransitionFromPending(ctx, "REF-CAS-MISSING", model.ContributionStatusCompleted)
		require.NoError(t, err)
		assert.False(t, applied)
	})
}

func TestContributionRepository_List(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewContributionRepository(db)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		createPendingContribution(t, repo, "REF-LIST-"+string(rune('A'+i)), 10.00)
	}
	_, err := repo.TransitionFromPending(ctx, "REF-LIST-A", model.ContributionStatusCompleted)
	require.NoError(t, err)

	t.Run("filter by status", func(t *testing.T) {
		items, total, err := repo.List(ctx, model.ContributionFilter{
			Statuses: []model.ContributionStatus{model.ContributionStatusPending},
			Limit:    10,
		})
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		assert.Len(t, items, 3)
	})

	t.Run("pagination", func(t *testing.T) {
		items, total, err := repo.List(ctx, model.ContributionFilter{Limit: 2})
		require.NoError(t, err)
		assert.Equal(t, int64(4), total)
		assert.Len(t, items, 2)
	})
}
