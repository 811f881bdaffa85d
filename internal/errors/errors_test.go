package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilderDefaults(t *testing.T) {
	t.Parallel()

	ee := New(stderrors.New("boom")).Build()

	assert.Equal(t, "boom", ee.Error())
	assert.Equal(t, ComponentUnknown, ee.Component)
	assert.Equal(t, CategoryGeneric, ee.Category)
	assert.False(t, ee.Timestamp.IsZero())
}

func TestBuilderFullChain(t *testing.T) {
	t.Parallel()

	base := stderrors.New("no such language")
	ee := New(base).
		Component("vocabulary").
		Category(CategoryNotFound).
		Context("domain", "language").
		Context("name", "Klingon").
		Build()

	assert.Equal(t, "vocabulary", ee.Component)
	assert.Equal(t, CategoryNotFound, ee.Category)
	assert.Equal(t, "language", ee.Context["domain"])
	assert.Equal(t, "Klingon", ee.Context["name"])
	assert.True(t, stderrors.Is(ee, base))
}

func TestCategoryPredicates(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		category ErrorCategory
		check    func(error) bool
	}{
		{"not found", CategoryNotFound, IsNotFound},
		{"duplicate name", CategoryDuplicateName, IsDuplicateName},
		{"classifier unavailable", CategoryClassifierUnavailable, IsClassifierUnavailable},
		{"invalid input", CategoryInvalidInput, IsInvalidInput},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := Newf("test error").Category(tt.category).Build()
			assert.True(t, tt.check(err))
			assert.False(t, tt.check(stderrors.New("plain")))
		})
	}
}

func TestPredicatesSeeThroughWrapping(t *testing.T) {
	t.Parallel()

	inner := Newf("entity missing").Category(CategoryNotFound).Build()
	wrapped := fmt.Errorf("select failed: %w", inner)

	assert.True(t, IsNotFound(wrapped))
	assert.Equal(t, CategoryNotFound, CategoryOf(wrapped))
	assert.Equal(t, CategoryGeneric, CategoryOf(stderrors.New("plain")))
}

func TestGetContextReturnsCopy(t *testing.T) {
	t.Parallel()

	ee := Newf("x").Context("key", "value").Build()
	ctx := ee.GetContext()
	require.NotNil(t, ctx)

	ctx["key"] = "mutated"
	assert.Equal(t, "value", ee.Context["key"])
}

func TestIsMatchesByCategory(t *testing.T) {
	t.Parallel()

	a := Newf("first").Category(CategoryDatabase).Build()
	b := Newf("second").Category(CategoryDatabase).Build()
	c := Newf("third").Category(CategoryNetwork).Build()

	assert.True(t, stderrors.Is(a, b))
	assert.False(t, stderrors.Is(a, c))
}
