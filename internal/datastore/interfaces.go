// interfaces.go defines the interface for the database operations
package datastore

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/tablevox/prefsel/internal/conf"
	"github.com/tablevox/prefsel/internal/errors"
	"github.com/tablevox/prefsel/internal/logging"
)

var logger = logging.ForService("datastore")

// Interface abstracts the underlying database implementation and defines the
// operations the engine needs: vocabulary storage and the selection store.
type Interface interface {
	Open() error
	Close() error

	// Vocabulary
	CreateEntity(ctx context.Context, entity *Entity) error
	GetEntityByName(ctx context.Context, domain, name string) (*Entity, error)
	GetEntityByID(ctx context.Context, id uint) (*Entity, error)
	ListActiveEntities(ctx context.Context, domain string) ([]Entity, error)
	ListEntities(ctx context.Context, domain string) ([]Entity, error)

	// Selections
	InsertSelection(ctx context.Context, selection *Selection) error
	RefreshSelection(ctx context.Context, domain, identityKey string, entityID uint, inputType string) (bool, error)
	LatestSelection(ctx context.Context, domain, identityKey string) (*Selection, error)
	ListSelections(ctx context.Context, domain, identityKey string) ([]Selection, error)
	DeleteSelection(ctx context.Context, domain, identityKey string, entityID uint) error
}

// DataStore implements Interface using a GORM database.
type DataStore struct {
	DB *gorm.DB // GORM database instance
}

// New creates a new datastore instance based on the provided settings.
func New(settings *conf.Settings) Interface {
	switch {
	case settings.Output.SQLite.Enabled:
		return &SQLiteStore{Settings: settings}
	case settings.Output.MySQL.Enabled:
		return &MySQLStore{Settings: settings}
	default:
		return nil
	}
}

// performAutoMigration runs GORM auto-migration for all persisted models.
func performAutoMigration(db *gorm.DB, debug bool, dbType, connectionInfo string) error {
	if err := db.AutoMigrate(&Entity{}, &Selection{}); err != nil {
		return fmt.Errorf("failed to auto-migrate %s database: %w", dbType, err)
	}
	if debug {
		logger.Debug("database connection established", "type", dbType, "connection", connectionInfo)
	}
	return nil
}

// dbError wraps a gorm error as a database-category enhanced error.
func dbError(err error, operation string) error {
	return errors.New(err).
		Component("datastore").
		Category(errors.CategoryDatabase).
		Context("operation", operation).
		Build()
}

// notFoundError builds a not-found error with lookup context.
func notFoundError(what string, keys map[string]any) error {
	eb := errors.Newf("%s not found", what).
		Component("datastore").
		Category(errors.CategoryNotFound)
	for k, v := range keys {
		eb = eb.Context(k, v)
	}
	return eb.Build()
}

// CreateEntity inserts a new vocabulary entity, filling NameKey from Name.
// A normalized-name collision within the domain yields a DuplicateName error.
func (ds *DataStore) CreateEntity(ctx context.Context, entity *Entity) error {
	entity.NameKey = NormalizeName(entity.Name)
	if entity.NameKey == "" {
		return errors.Newf("entity name cannot be empty").
			Component("datastore").
			Category(errors.CategoryInvalidInput).
			Build()
	}

	var count int64
	if err := ds.DB.WithContext(ctx).Model(&Entity{}).
		Where("domain = ? AND name_key = ?", entity.Domain, entity.NameKey).
		Count(&count).Error; err != nil {
		return dbError(err, "create_entity")
	}
	if count > 0 {
		return errors.Newf("entity %q already exists in domain %q", entity.Name, entity.Domain).
			Component("datastore").
			Category(errors.CategoryDuplicateName).
			Context("name", entity.Name).
			Context("domain", entity.Domain).
			Build()
	}

	if err := ds.DB.WithContext(ctx).Create(entity).Error; err != nil {
		return dbError(err, "create_entity")
	}
	return nil
}

// GetEntityByName looks up an active entity by its normalized name.
// This is the single source of truth for "is this string a known entity".
func (ds *DataStore) GetEntityByName(ctx context.Context, domain, name string) (*Entity, error) {
	var entity Entity
	err := ds.DB.WithContext(ctx).
		Where("domain = ? AND name_key = ? AND active = ?", domain, NormalizeName(name), true).
		First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError("entity", map[string]any{"domain": domain, "name": name})
		}
		return nil, dbError(err, "get_entity_by_name")
	}
	return &entity, nil
}

// GetEntityByID retrieves an entity by its primary key, active or not.
// Inactive entities stay resolvable so selection history remains renderable.
func (ds *DataStore) GetEntityByID(ctx context.Context, id uint) (*Entity, error) {
	var entity Entity
	err := ds.DB.WithContext(ctx).First(&entity, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError("entity", map[string]any{"id": id})
		}
		return nil, dbError(err, "get_entity_by_id")
	}
	return &entity, nil
}

// ListActiveEntities returns all active entities in a domain, ordered by name.
func (ds *DataStore) ListActiveEntities(ctx context.Context, domain string) ([]Entity, error) {
	var entities []Entity
	err := ds.DB.WithContext(ctx).
		Where("domain = ? AND active = ?", domain, true).
		Order("name_key ASC").
		Find(&entities).Error
	if err != nil {
		return nil, dbError(err, "list_active_entities")
	}
	return entities, nil
}

// ListEntities returns all entities in a domain, active or not.
func (ds *DataStore) ListEntities(ctx context.Context, domain string) ([]Entity, error) {
	var entities []Entity
	err := ds.DB.WithContext(ctx).
		Where("domain = ?", domain).
		Order("name_key ASC").
		Find(&entities).Error
	if err != nil {
		return nil, dbError(err, "list_entities")
	}
	return entities, nil
}

// InsertSelection appends a new selection row. SelectedAt is stamped here so
// "latest wins" is defined by the persisted timestamp.
func (ds *DataStore) InsertSelection(ctx context.Context, selection *Selection) error {
	if selection.SelectedAt.IsZero() {
		selection.SelectedAt = time.Now()
	}
	if err := ds.DB.WithContext(ctx).Create(selection).Error; err != nil {
		return dbError(err, "insert_selection")
	}
	return nil
}

// RefreshSelection bumps SelectedAt on an existing (identity, entity) row and
// reports whether such a row existed. Used by the refresh reselect policy.
func (ds *DataStore) RefreshSelection(ctx context.Context, domain, identityKey string, entityID uint, inputType string) (bool, error) {
	result := ds.DB.WithContext(ctx).Model(&Selection{}).
		Where("domain = ? AND identity_key = ? AND entity_id = ?", domain, identityKey, entityID).
		Updates(map[string]any{
			"selected_at": time.Now(),
			"input_type":  inputType,
		})
	if result.Error != nil {
		return false, dbError(result.Error, "refresh_selection")
	}
	return result.RowsAffected > 0, nil
}

// LatestSelection returns the most recent selection for an identity.
func (ds *DataStore) LatestSelection(ctx context.Context, domain, identityKey string) (*Selection, error) {
	var selection Selection
	err := ds.DB.WithContext(ctx).
		Preload("Entity").
		Where("domain = ? AND identity_key = ?", domain, identityKey).
		Order("selected_at DESC, id DESC").
		First(&selection).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError("selection", map[string]any{"domain": domain, "identity": identityKey})
		}
		return nil, dbError(err, "latest_selection")
	}
	return &selection, nil
}

// ListSelections returns all selections for an identity, most recent first.
func (ds *DataStore) ListSelections(ctx context.Context, domain, identityKey string) ([]Selection, error) {
	var selections []Selection
	err := ds.DB.WithContext(ctx).
		Preload("Entity").
		Where("domain = ? AND identity_key = ?", domain, identityKey).
		Order("selected_at DESC, id DESC").
		Find(&selections).Error
	if err != nil {
		return nil, dbError(err, "list_selections")
	}
	return selections, nil
}

// DeleteSelection removes the matching selection row(s) outright, not a
// tombstone. Reports NotFound when nothing matched.
func (ds *DataStore) DeleteSelection(ctx context.Context, domain, identityKey string, entityID uint) error {
	result := ds.DB.WithContext(ctx).
		Where("domain = ? AND identity_key = ? AND entity_id = ?", domain, identityKey, entityID).
		Delete(&Selection{})
	if result.Error != nil {
		return dbError(result.Error, "delete_selection")
	}
	if result.RowsAffected == 0 {
		return notFoundError("selection", map[string]any{
			"domain":   domain,
			"identity": identityKey,
			"entity":   entityID,
		})
	}
	return nil
}
