// Package selection implements the core of the engine: the direct matcher for
// typed input, the detection merger for classifier candidates, and the
// orchestrator tying matcher, classifier, merger and the selection store
// together.
package selection

import (
	"context"
	"fmt"
	"strings"

	"github.com/tablevox/prefsel/internal/classifier"
	"github.com/tablevox/prefsel/internal/conf"
	"github.com/tablevox/prefsel/internal/datastore"
	"github.com/tablevox/prefsel/internal/errors"
	"github.com/tablevox/prefsel/internal/logging"
	"github.com/tablevox/prefsel/internal/observability"
	"github.com/tablevox/prefsel/internal/vocabulary"
)

var logger = logging.ForService("selection")

// Result is the outcome of a Select or Detect call.
type Result struct {
	// Primary is the single entity chosen to represent the input.
	Primary datastore.Entity
	// Detected holds all recognized entities in first-mention order. Empty
	// when detection collapsed to nothing and Primary is the default.
	Detected []datastore.Entity
	// Fallback is true when Primary is the configured default entity.
	Fallback bool
	// Persisted is true when the selection was written to the store.
	Persisted bool
}

// Orchestrator is the public entry point of the engine. All its operations
// are short-lived request/response calls, safe to invoke concurrently across
// identities; concurrent writers for the same identity race at the storage
// layer and latest-wins is defined by the persisted timestamp.
type Orchestrator struct {
	registry   *vocabulary.Registry
	classifier classifier.Capability
	store      datastore.Interface
	settings   *conf.Settings
	metrics    *observability.Metrics
}

// NewOrchestrator wires the engine together. metrics may be nil.
func NewOrchestrator(
	registry *vocabulary.Registry,
	capability classifier.Capability,
	store datastore.Interface,
	settings *conf.Settings,
	metrics *observability.Metrics,
) *Orchestrator {
	return &Orchestrator{
		registry:   registry,
		classifier: capability,
		store:      store,
		settings:   settings,
		metrics:    metrics,
	}
}

// domainSettings resolves and validates the domain name.
func (o *Orchestrator) domainSettings(domain string) (string, conf.DomainSettings, error) {
	normalized := strings.ToLower(strings.TrimSpace(domain))
	cfg, ok := o.settings.Domain(normalized)
	if !ok {
		return "", conf.DomainSettings{}, errors.Newf("unknown selection domain %q", domain).
			Component("selection").
			Category(errors.CategoryInvalidInput).
			Build()
	}
	return normalized, cfg, nil
}

// defaultEntity resolves the configured default entity for a domain. A
// missing default is a deployment problem, not a caller error.
func (o *Orchestrator) defaultEntity(ctx context.Context, domain string, cfg conf.DomainSettings) (*datastore.Entity, error) {
	entity, err := o.registry.FindByName(ctx, domain, cfg.Default)
	if err != nil {
		return nil, errors.Newf("default entity %q is not part of the active %q vocabulary", cfg.Default, domain).
			Component("selection").
			Category(errors.CategoryConfiguration).
			Build()
	}
	return entity, nil
}

// detectVoice runs the classifier over the active vocabulary and merges the
// candidates. Read-only; shared by Select's voice branch and Detect.
func (o *Orchestrator) detectVoice(ctx context.Context, domain string, cfg conf.DomainSettings, rawText string) (*MergeResult, error) {
	active, err := o.registry.ListActive(ctx, domain)
	if err != nil {
		return nil, err
	}
	defaultEntity, err := o.defaultEntity(ctx, domain, cfg)
	if err != nil {
		return nil, err
	}

	labels := make([]string, 0, len(active))
	for i := range active {
		labels = append(labels, active[i].Name)
	}

	candidates, err := o.classifier.Classify(ctx, rawText, labels)
	if err != nil {
		// "Could not ask" must stay distinguishable from "found nothing";
		// no fallback to the default here.
		o.metrics.RecordClassifierFailure(domain)
		return nil, fmt.Errorf("classifying utterance: %w", err)
	}

	result := Merge(candidates, active, *defaultEntity)
	o.metrics.RecordDetectionSize(domain, len(result.Detected))
	if result.Fallback {
		o.metrics.RecordFallback(domain)
	}
	return &result, nil
}

// Select resolves raw input to vocabulary entities and records the result
// against the identity. Any resolution failure aborts before anything is
// persisted.
func (o *Orchestrator) Select(ctx context.Context, domain, identityKey, rawText string, input InputType) (*Result, error) {
	domain, cfg, err := o.domainSettings(domain)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(identityKey) == "" {
		return nil, errors.Newf("identity key cannot be empty").
			Component("selection").
			Category(errors.CategoryInvalidInput).
			Build()
	}
	rawText = strings.TrimSpace(rawText)
	if rawText == "" {
		return nil, errors.Newf("raw text cannot be empty").
			Component("selection").
			Category(errors.CategoryInvalidInput).
			Build()
	}

	var result Result
	switch input {
	case InputText:
		// Deterministic path: exact case-insensitive lookup, no classifier.
		entity, err := o.registry.FindByName(ctx, domain, rawText)
		if err != nil {
			return nil, err
		}
		result = Result{
			Primary:  *entity,
			Detected: []datastore.Entity{*entity},
		}
	case InputVoice:
		merged, err := o.detectVoice(ctx, domain, cfg, rawText)
		if err != nil {
			return nil, err
		}
		result = Result{
			Primary:  merged.Primary,
			Detected: merged.Detected,
			Fallback: merged.Fallback,
		}
	default:
		return nil, errors.Newf("unsupported input type %q", input).
			Component("selection").
			Category(errors.CategoryInvalidInput).
			Build()
	}

	if err := o.persist(ctx, domain, cfg, identityKey, input, &result); err != nil {
		return nil, err
	}
	result.Persisted = true

	logger.Info("selection recorded",
		"domain", domain,
		"identity", identityKey,
		"input_type", input.String(),
		"primary", result.Primary.Name,
		"detected", len(result.Detected),
		"fallback", result.Fallback)
	return &result, nil
}

// persist writes the resolved entities according to the domain's reselect
// and multi-select policies. When detection fell back to the default, the
// default itself is recorded so the identity always ends up with a current
// selection.
func (o *Orchestrator) persist(ctx context.Context, domain string, cfg conf.DomainSettings, identityKey string, input InputType, result *Result) error {
	entities := []datastore.Entity{result.Primary}
	if cfg.MultiSelect && len(result.Detected) > 0 {
		entities = result.Detected
	}

	for i := range entities {
		entityID := entities[i].ID

		if cfg.ReselectPolicy == conf.ReselectRefresh {
			found, err := o.store.RefreshSelection(ctx, domain, identityKey, entityID, input.String())
			if err != nil {
				return err
			}
			if found {
				o.metrics.RecordSelection(domain, input.String())
				continue
			}
		}

		if err := o.store.InsertSelection(ctx, &datastore.Selection{
			Domain:      domain,
			IdentityKey: identityKey,
			EntityID:    entityID,
			InputType:   input.String(),
		}); err != nil {
			return err
		}
		o.metrics.RecordSelection(domain, input.String())
	}
	return nil
}

// Detect runs the voice pipeline without touching the selection store. Used
// for offline inspection of classifier and merger behavior.
func (o *Orchestrator) Detect(ctx context.Context, domain, rawText string) (*Result, error) {
	domain, cfg, err := o.domainSettings(domain)
	if err != nil {
		return nil, err
	}
	rawText = strings.TrimSpace(rawText)
	if rawText == "" {
		return nil, errors.Newf("raw text cannot be empty").
			Component("selection").
			Category(errors.CategoryInvalidInput).
			Build()
	}

	merged, err := o.detectVoice(ctx, domain, cfg, rawText)
	if err != nil {
		return nil, err
	}
	return &Result{
		Primary:  merged.Primary,
		Detected: merged.Detected,
		Fallback: merged.Fallback,
	}, nil
}

// GetCurrent returns the identity's current selection, defined as the row
// with the latest selected_at timestamp.
func (o *Orchestrator) GetCurrent(ctx context.Context, domain, identityKey string) (*datastore.Selection, error) {
	domain, _, err := o.domainSettings(domain)
	if err != nil {
		return nil, err
	}
	return o.store.LatestSelection(ctx, domain, identityKey)
}

// ListAll returns all of the identity's selections, most recent first.
func (o *Orchestrator) ListAll(ctx context.Context, domain, identityKey string) ([]datastore.Selection, error) {
	domain, _, err := o.domainSettings(domain)
	if err != nil {
		return nil, err
	}
	return o.store.ListSelections(ctx, domain, identityKey)
}

// Remove deletes the identity's selection of the given entity.
func (o *Orchestrator) Remove(ctx context.Context, domain, identityKey string, entityID uint) error {
	domain, _, err := o.domainSettings(domain)
	if err != nil {
		return err
	}
	return o.store.DeleteSelection(ctx, domain, identityKey, entityID)
}

// Vocabulary exposes the registry for the admin surface.
func (o *Orchestrator) Vocabulary() *vocabulary.Registry {
	return o.registry
}
