// Package vocabulary holds the canonical set of selectable entities per
// domain. All lookups go through the Registry so callers never touch the
// datastore directly and tests can substitute an in-memory store.
package vocabulary

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/tablevox/prefsel/internal/conf"
	"github.com/tablevox/prefsel/internal/datastore"
	"github.com/tablevox/prefsel/internal/errors"
	"github.com/tablevox/prefsel/internal/logging"
)

var logger = logging.ForService("vocabulary")

const (
	activeListTTL   = time.Minute
	cleanupInterval = 5 * time.Minute
)

// Registry fronts the entity tables with a short-lived cache. The active list
// is read on every voice request (it becomes the classifier's label set), so
// it is worth keeping hot.
type Registry struct {
	store datastore.Interface
	cache *cache.Cache
}

// NewRegistry creates a registry backed by the given datastore.
func NewRegistry(store datastore.Interface) *Registry {
	return &Registry{
		store: store,
		cache: cache.New(activeListTTL, cleanupInterval),
	}
}

func activeListKey(domain string) string {
	return "active:" + domain
}

// ListActive returns all active entities in a domain.
func (r *Registry) ListActive(ctx context.Context, domain string) ([]datastore.Entity, error) {
	key := activeListKey(domain)
	if cached, found := r.cache.Get(key); found {
		if entities, ok := cached.([]datastore.Entity); ok {
			return entities, nil
		}
	}

	entities, err := r.store.ListActiveEntities(ctx, domain)
	if err != nil {
		return nil, fmt.Errorf("listing active entities for domain %q: %w", domain, err)
	}

	r.cache.Set(key, entities, cache.DefaultExpiration)
	return entities, nil
}

// ActiveNames returns the canonical names of all active entities in a domain,
// the closed label set handed to the classifier.
func (r *Registry) ActiveNames(ctx context.Context, domain string) ([]string, error) {
	entities, err := r.ListActive(ctx, domain)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entities))
	for i := range entities {
		names = append(names, entities[i].Name)
	}
	return names, nil
}

// FindByName resolves a raw string to an active entity by exact,
// case-insensitive name comparison. This is the single source of truth for
// "is this string a known entity".
func (r *Registry) FindByName(ctx context.Context, domain, text string) (*datastore.Entity, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.Newf("entity name cannot be empty").
			Component("vocabulary").
			Category(errors.CategoryInvalidInput).
			Context("domain", domain).
			Build()
	}
	return r.store.GetEntityByName(ctx, domain, text)
}

// Add registers a new active entity. Fails with a DuplicateName error when the
// name (case-insensitively) already exists in the domain.
func (r *Registry) Add(ctx context.Context, domain, name, code, description string) (*datastore.Entity, error) {
	entity := &datastore.Entity{
		Domain:      domain,
		Name:        strings.TrimSpace(name),
		Code:        code,
		Description: description,
		Active:      true,
	}
	if err := r.store.CreateEntity(ctx, entity); err != nil {
		return nil, err
	}

	r.cache.Delete(activeListKey(domain))
	logger.Info("vocabulary entity added", "domain", domain, "name", entity.Name, "id", entity.ID)
	return entity, nil
}

// ListAll returns every entity in a domain, active or not.
func (r *Registry) ListAll(ctx context.Context, domain string) ([]datastore.Entity, error) {
	return r.store.ListEntities(ctx, domain)
}

// Seed creates the configured entities for a domain if they do not exist yet.
// Existing entities are left untouched.
func (r *Registry) Seed(ctx context.Context, domain string, seed []conf.SeedEntity) error {
	for _, s := range seed {
		_, err := r.Add(ctx, domain, s.Name, s.Code, s.Description)
		if err != nil {
			if errors.IsDuplicateName(err) {
				continue
			}
			return fmt.Errorf("seeding domain %q with %q: %w", domain, s.Name, err)
		}
	}
	return nil
}
