package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/tablevox/prefsel/internal/conf"
	"github.com/tablevox/prefsel/internal/datastore"
	"github.com/tablevox/prefsel/internal/errors"
	"github.com/tablevox/prefsel/internal/selection"
	"github.com/tablevox/prefsel/internal/vocabulary"
)

// classifierFunc adapts a function to the classifier.Capability interface.
type classifierFunc func(ctx context.Context, utterance string, labels []string) ([]string, error)

func (f classifierFunc) Classify(ctx context.Context, utterance string, labels []string) ([]string, error) {
	return f(ctx, utterance, labels)
}

func testSettings() *conf.Settings {
	settings := &conf.Settings{}
	settings.WebServer.Port = "8080"
	settings.Domains = map[string]conf.DomainSettings{
		conf.DomainLanguage: {
			Default:        "English",
			ReselectPolicy: conf.ReselectAppend,
		},
		conf.DomainService: {
			Default:        "Delivery",
			ReselectPolicy: conf.ReselectRefresh,
			MultiSelect:    true,
		},
	}
	return settings
}

// newTestController wires a controller against an in-memory database with a
// seeded vocabulary and the given classifier stand-in.
func newTestController(t *testing.T, capability classifierFunc) *Controller {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=private"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&datastore.Entity{}, &datastore.Selection{}))

	store := &datastore.SQLiteStore{DataStore: datastore.DataStore{DB: db}}
	registry := vocabulary.NewRegistry(store)
	ctx := context.Background()

	for _, name := range []string{"English", "Spanish", "French"} {
		_, err := registry.Add(ctx, conf.DomainLanguage, name, "", "")
		require.NoError(t, err)
	}
	for _, name := range []string{"Delivery", "Pickup"} {
		_, err := registry.Add(ctx, conf.DomainService, name, "", "")
		require.NoError(t, err)
	}

	settings := testSettings()
	orchestrator := selection.NewOrchestrator(registry, capability, store, settings, nil)
	return New(settings, orchestrator, nil)
}

func doJSON(t *testing.T, c *Controller, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c.Echo.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealthCheck(t *testing.T) {
	t.Parallel()
	c := newTestController(t, nil)

	rec := doJSON(t, c, http.MethodGet, "/api/v2/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody[map[string]any](t, rec)
	assert.Equal(t, "healthy", body["status"])
}

func TestCreateSelectionText(t *testing.T) {
	t.Parallel()
	c := newTestController(t, nil)

	rec := doJSON(t, c, http.MethodPost, "/api/v2/language/selections", SelectionRequest{
		IdentityKey: "session-1",
		RawText:     "spanish",
		InputType:   "text",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decodeBody[SelectionResponse](t, rec)
	assert.True(t, body.Success)
	assert.Equal(t, "session-1", body.IdentityKey)
	assert.Equal(t, "Spanish", body.Selected.Name)
	assert.False(t, body.Fallback)
}

func TestCreateSelectionAssignsIdentity(t *testing.T) {
	t.Parallel()
	c := newTestController(t, nil)

	rec := doJSON(t, c, http.MethodPost, "/api/v2/language/selections", SelectionRequest{
		RawText:   "French",
		InputType: "text",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decodeBody[SelectionResponse](t, rec)
	require.NotEmpty(t, body.IdentityKey)

	// The generated identity is usable for follow-up reads.
	rec = doJSON(t, c, http.MethodGet, "/api/v2/language/selections/"+body.IdentityKey+"/current", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	current := decodeBody[SelectionRecord](t, rec)
	assert.Equal(t, "French", current.Entity.Name)
}

func TestCreateSelectionUnknownEntity(t *testing.T) {
	t.Parallel()
	c := newTestController(t, nil)

	rec := doJSON(t, c, http.MethodPost, "/api/v2/language/selections", SelectionRequest{
		IdentityKey: "session-1",
		RawText:     "Klingon",
		InputType:   "text",
	})
	require.Equal(t, http.StatusNotFound, rec.Code)

	body := decodeBody[ErrorResponse](t, rec)
	assert.NotEmpty(t, body.CorrelationID)
	assert.Equal(t, http.StatusNotFound, body.Code)
}

func TestCreateSelectionBadInputType(t *testing.T) {
	t.Parallel()
	c := newTestController(t, nil)

	rec := doJSON(t, c, http.MethodPost, "/api/v2/language/selections", SelectionRequest{
		IdentityKey: "session-1",
		RawText:     "Spanish",
		InputType:   "telepathy",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateSelectionVoiceFallback(t *testing.T) {
	t.Parallel()
	c := newTestController(t, func(_ context.Context, _ string, labels []string) ([]string, error) {
		require.NotEmpty(t, labels)
		return nil, nil
	})

	rec := doJSON(t, c, http.MethodPost, "/api/v2/language/selections", SelectionRequest{
		IdentityKey: "session-1",
		RawText:     "I do not speak any of those",
		InputType:   "voice",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decodeBody[SelectionResponse](t, rec)
	assert.Equal(t, "English", body.Selected.Name)
	assert.True(t, body.Fallback)
	assert.Empty(t, body.Detected)
}

func TestCreateSelectionClassifierUnavailable(t *testing.T) {
	t.Parallel()
	c := newTestController(t, func(context.Context, string, []string) ([]string, error) {
		return nil, errors.Newf("model endpoint down").
			Component("classifier").
			Category(errors.CategoryClassifierUnavailable).
			Build()
	})

	rec := doJSON(t, c, http.MethodPost, "/api/v2/language/selections", SelectionRequest{
		IdentityKey: "session-1",
		RawText:     "hablo español",
		InputType:   "voice",
	})
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	// Nothing was persisted for the identity.
	rec = doJSON(t, c, http.MethodGet, "/api/v2/language/selections/session-1/current", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDetectIsReadOnly(t *testing.T) {
	t.Parallel()
	c := newTestController(t, func(context.Context, string, []string) ([]string, error) {
		return []string{"French", "Spanish"}, nil
	})

	rec := doJSON(t, c, http.MethodPost, "/api/v2/language/detect", DetectRequest{
		RawText: "je parle français et espagnol",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decodeBody[DetectResponse](t, rec)
	assert.Equal(t, "French", body.Primary.Name)
	require.Len(t, body.Detected, 2)
	assert.False(t, body.Fallback)

	rec = doJSON(t, c, http.MethodGet, "/api/v2/language/selections/anyone/current", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSelectionLifecycle(t *testing.T) {
	t.Parallel()
	c := newTestController(t, func(context.Context, string, []string) ([]string, error) {
		return []string{"Delivery", "Pickup"}, nil
	})

	rec := doJSON(t, c, http.MethodPost, "/api/v2/service/selections", SelectionRequest{
		IdentityKey: "session-1",
		RawText:     "both delivery and pickup please",
		InputType:   "voice",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(t, c, http.MethodGet, "/api/v2/service/selections/session-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	records := decodeBody[[]SelectionRecord](t, rec)
	require.Len(t, records, 2)

	rec = doJSON(t, c, http.MethodDelete,
		fmt.Sprintf("/api/v2/service/selections/session-1/%d", records[0].Entity.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, c, http.MethodGet, "/api/v2/service/selections/session-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	records = decodeBody[[]SelectionRecord](t, rec)
	assert.Len(t, records, 1)
}

func TestDeleteSelectionBadEntityID(t *testing.T) {
	t.Parallel()
	c := newTestController(t, nil)

	rec := doJSON(t, c, http.MethodDelete, "/api/v2/service/selections/session-1/notanumber", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUnknownDomain(t *testing.T) {
	t.Parallel()
	c := newTestController(t, nil)

	rec := doJSON(t, c, http.MethodPost, "/api/v2/cuisine/selections", SelectionRequest{
		IdentityKey: "session-1",
		RawText:     "Spanish",
		InputType:   "text",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVocabularyListAndAdd(t *testing.T) {
	t.Parallel()
	c := newTestController(t, nil)

	rec := doJSON(t, c, http.MethodGet, "/api/v2/language/vocabulary", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	entities := decodeBody[[]EntityResponse](t, rec)
	require.Len(t, entities, 3)

	rec = doJSON(t, c, http.MethodPost, "/api/v2/language/vocabulary", VocabularyRequest{
		Name: "Italian",
		Code: "it",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	added := decodeBody[EntityResponse](t, rec)
	assert.Equal(t, "Italian", added.Name)
	assert.NotZero(t, added.ID)

	// Duplicate names conflict, case-insensitively.
	rec = doJSON(t, c, http.MethodPost, "/api/v2/language/vocabulary", VocabularyRequest{
		Name: "ITALIAN",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}
