package datastore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/tablevox/prefsel/internal/errors"
)

// newTestStore opens an in-memory SQLite database with migrations applied.
func newTestStore(t *testing.T) *DataStore {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=private"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&Entity{}, &Selection{}))

	return &DataStore{DB: db}
}

func seedEntity(t *testing.T, ds *DataStore, domain, name string) *Entity {
	t.Helper()
	entity := &Entity{Domain: domain, Name: name, Active: true}
	require.NoError(t, ds.CreateEntity(context.Background(), entity))
	return entity
}

func TestCreateEntityNormalizesNameKey(t *testing.T) {
	t.Parallel()
	ds := newTestStore(t)

	entity := &Entity{Domain: "language", Name: "  Spanish ", Active: true}
	require.NoError(t, ds.CreateEntity(context.Background(), entity))

	assert.Equal(t, "spanish", entity.NameKey)
	assert.NotZero(t, entity.ID)
}

func TestCreateEntityDuplicateName(t *testing.T) {
	t.Parallel()
	ds := newTestStore(t)
	seedEntity(t, ds, "language", "Spanish")

	err := ds.CreateEntity(context.Background(), &Entity{Domain: "language", Name: "SPANISH", Active: true})
	require.Error(t, err)
	assert.True(t, errors.IsDuplicateName(err))

	// Same name in a different domain is fine.
	err = ds.CreateEntity(context.Background(), &Entity{Domain: "service", Name: "Spanish", Active: true})
	assert.NoError(t, err)
}

func TestCreateEntityEmptyName(t *testing.T) {
	t.Parallel()
	ds := newTestStore(t)

	err := ds.CreateEntity(context.Background(), &Entity{Domain: "language", Name: "   "})
	require.Error(t, err)
	assert.True(t, errors.IsInvalidInput(err))
}

func TestGetEntityByNameCaseInsensitive(t *testing.T) {
	t.Parallel()
	ds := newTestStore(t)
	seedEntity(t, ds, "language", "French")

	for _, input := range []string{"French", "french", " FRENCH "} {
		entity, err := ds.GetEntityByName(context.Background(), "language", input)
		require.NoError(t, err, "input %q", input)
		assert.Equal(t, "French", entity.Name)
	}
}

func TestGetEntityByNameExcludesInactive(t *testing.T) {
	t.Parallel()
	ds := newTestStore(t)

	entity := seedEntity(t, ds, "language", "German")
	require.NoError(t, ds.DB.Model(entity).Update("active", false).Error)

	_, err := ds.GetEntityByName(context.Background(), "language", "German")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))

	// Still resolvable by ID for history rendering.
	byID, err := ds.GetEntityByID(context.Background(), entity.ID)
	require.NoError(t, err)
	assert.False(t, byID.Active)
}

func TestListActiveEntities(t *testing.T) {
	t.Parallel()
	ds := newTestStore(t)

	seedEntity(t, ds, "service", "Delivery")
	seedEntity(t, ds, "service", "Catering")
	inactive := seedEntity(t, ds, "service", "Pickup")
	require.NoError(t, ds.DB.Model(inactive).Update("active", false).Error)
	seedEntity(t, ds, "language", "English")

	entities, err := ds.ListActiveEntities(context.Background(), "service")
	require.NoError(t, err)
	require.Len(t, entities, 2)
	// Ordered by normalized name.
	assert.Equal(t, "Catering", entities[0].Name)
	assert.Equal(t, "Delivery", entities[1].Name)
}

func TestSelectionLifecycle(t *testing.T) {
	t.Parallel()
	ds := newTestStore(t)
	ctx := context.Background()

	delivery := seedEntity(t, ds, "service", "Delivery")
	catering := seedEntity(t, ds, "service", "Catering")

	require.NoError(t, ds.InsertSelection(ctx, &Selection{
		Domain: "service", IdentityKey: "user-1", EntityID: delivery.ID, InputType: "voice",
		SelectedAt: time.Now().Add(-time.Minute),
	}))
	require.NoError(t, ds.InsertSelection(ctx, &Selection{
		Domain: "service", IdentityKey: "user-1", EntityID: catering.ID, InputType: "voice",
	}))

	latest, err := ds.LatestSelection(ctx, "service", "user-1")
	require.NoError(t, err)
	assert.Equal(t, catering.ID, latest.EntityID)
	assert.Equal(t, "Catering", latest.Entity.Name)

	all, err := ds.ListSelections(ctx, "service", "user-1")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, catering.ID, all[0].EntityID)
	assert.Equal(t, delivery.ID, all[1].EntityID)

	require.NoError(t, ds.DeleteSelection(ctx, "service", "user-1", catering.ID))

	all, err = ds.ListSelections(ctx, "service", "user-1")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, delivery.ID, all[0].EntityID)
}

func TestDeleteSelectionNotFound(t *testing.T) {
	t.Parallel()
	ds := newTestStore(t)

	err := ds.DeleteSelection(context.Background(), "service", "nobody", 42)
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestLatestSelectionNotFound(t *testing.T) {
	t.Parallel()
	ds := newTestStore(t)

	_, err := ds.LatestSelection(context.Background(), "language", "missing-session")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestRefreshSelection(t *testing.T) {
	t.Parallel()
	ds := newTestStore(t)
	ctx := context.Background()

	delivery := seedEntity(t, ds, "service", "Delivery")

	found, err := ds.RefreshSelection(ctx, "service", "user-1", delivery.ID, "text")
	require.NoError(t, err)
	assert.False(t, found, "refresh without existing row should report not found")

	old := time.Now().Add(-time.Hour)
	require.NoError(t, ds.InsertSelection(ctx, &Selection{
		Domain: "service", IdentityKey: "user-1", EntityID: delivery.ID,
		InputType: "voice", SelectedAt: old,
	}))

	found, err = ds.RefreshSelection(ctx, "service", "user-1", delivery.ID, "text")
	require.NoError(t, err)
	assert.True(t, found)

	all, err := ds.ListSelections(ctx, "service", "user-1")
	require.NoError(t, err)
	require.Len(t, all, 1, "refresh must not create a duplicate row")
	assert.True(t, all[0].SelectedAt.After(old))
	assert.Equal(t, "text", all[0].InputType)
}
