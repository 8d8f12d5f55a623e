//go:build integration

package repositories

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/statline-io/statline-engine/pkg/apperrors"
	"github.com/statline-io/statline-engine/pkg/models"
	"github.com/statline-io/statline-engine/pkg/testhelpers"
)

func TestComponentRepositoryRoundTrip(t *testing.T) {
	testDB := testhelpers.GetTestDB(t)
	testhelpers.TruncateAll(t, testDB.DB)
	ctx := context.Background()

	lookups := NewLookupRepository(testDB.DB)
	category, err := lookups.GetCategoryByName(ctx, "uncategorized")
	require.NoError(t, err)

	repo := NewComponentRepository(testDB.DB)
	c := &models.Component{
		Name:       "auth-service",
		CategoryID: category.ID,
		Status:     models.StatusPartiallyWorking,
		Priority:   models.PriorityHigh,
		CreatedBy:  "tester",
	}
	require.NoError(t, repo.Create(ctx, c))
	assert.NotZero(t, c.ID)
	assert.Equal(t, 1, c.Version)
	assert.True(t, c.IsActive)

	got, err := repo.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.Name, got.Name)
	assert.Equal(t, models.StatusPartiallyWorking, got.Status)

	byName, err := repo.GetByName(ctx, "auth-service")
	require.NoError(t, err)
	assert.Equal(t, c.ID, byName.ID)

	_, err = repo.GetByName(ctx, "not-there")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestComponentRepositoryOptimisticUpdate(t *testing.T) {
	testDB := testhelpers.GetTestDB(t)
	testhelpers.TruncateAll(t, testDB.DB)
	ctx := context.Background()

	lookups := NewLookupRepository(testDB.DB)
	category, err := lookups.GetCategoryByName(ctx, "uncategorized")
	require.NoError(t, err)

	repo := NewComponentRepository(testDB.DB)
	c := &models.Component{
		Name:       "auth-service",
		CategoryID: category.ID,
		Status:     models.StatusPartiallyWorking,
		Priority:   models.PriorityMedium,
		CreatedBy:  "tester",
	}
	require.NoError(t, repo.Create(ctx, c))

	c.Notes = "retry handling added"
	require.NoError(t, repo.Update(ctx, c, 1))
	assert.Equal(t, 2, c.Version, "update bumps the stored version in place")

	// A writer holding the old version loses.
	stale := *c
	stale.Notes = "stale write"
	err = repo.Update(ctx, &stale, 1)
	require.Error(t, err)
	assert.True(t, apperrors.IsVersionConflict(err))

	got, err := repo.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "retry handling added", got.Notes)
	assert.Equal(t, 2, got.Version)
}

func TestComponentRepositoryListActiveOnly(t *testing.T) {
	testDB := testhelpers.GetTestDB(t)
	testhelpers.TruncateAll(t, testDB.DB)
	ctx := context.Background()

	lookups := NewLookupRepository(testDB.DB)
	category, err := lookups.GetCategoryByName(ctx, "uncategorized")
	require.NoError(t, err)

	repo := NewComponentRepository(testDB.DB)
	active := &models.Component{
		Name:       "auth-service",
		CategoryID: category.ID,
		Status:     models.StatusPartiallyWorking,
		Priority:   models.PriorityMedium,
		CreatedBy:  "tester",
	}
	require.NoError(t, repo.Create(ctx, active))

	retired := &models.Component{
		Name:       "legacy-ldap",
		CategoryID: category.ID,
		Status:     models.StatusBroken,
		Priority:   models.PriorityLow,
		CreatedBy:  "tester",
	}
	require.NoError(t, repo.Create(ctx, retired))
	retired.IsActive = false
	require.NoError(t, repo.Update(ctx, retired, 1))

	list, err := repo.List(ctx, true)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, active.ID, list[0].ID)

	all, err := repo.List(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
