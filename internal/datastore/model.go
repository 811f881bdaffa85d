// model.go defines the persisted data model for the selection engine.
package datastore

import (
	"strings"
	"time"
)

// Entity is one canonical, selectable vocabulary item (a language, a service).
// Identity is immutable once a Selection references it; deactivated entities
// are excluded from matching but retained for history integrity.
type Entity struct {
	ID     uint   `gorm:"primaryKey"`
	Domain string `gorm:"size:50;not null;uniqueIndex:idx_entities_domain_namekey;index:idx_entities_domain_active"`
	Name   string `gorm:"size:100;not null"`
	// NameKey is the normalized (lowercased, trimmed) form of Name. The unique
	// index lives on it so name uniqueness is case-insensitive regardless of
	// database collation.
	NameKey     string `gorm:"size:100;not null;uniqueIndex:idx_entities_domain_namekey"`
	Code        string `gorm:"size:10"`  // optional short code, e.g. ISO 639-1
	Description string `gorm:"size:255"` // optional human-readable description
	Active      bool   `gorm:"not null;default:true;index:idx_entities_domain_active"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Selection records one resolved selection of an entity by an identity
// (a session or a user). Rows are append-only; removal is a targeted delete.
type Selection struct {
	ID          uint      `gorm:"primaryKey"`
	Domain      string    `gorm:"size:50;not null;index:idx_selections_identity"`
	IdentityKey string    `gorm:"size:100;not null;index:idx_selections_identity"`
	EntityID    uint      `gorm:"not null;index"`
	Entity      Entity    `gorm:"foreignKey:EntityID"`
	InputType   string    `gorm:"size:10"` // "text" or "voice"
	SelectedAt  time.Time `gorm:"not null;index"`
}

// NormalizeName returns the canonical lookup key for an entity name:
// whitespace-trimmed and lowercased.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
