package selection

import (
	"strings"

	"github.com/tablevox/prefsel/internal/errors"
)

// InputType is the tagged input mode of a select call. Parsed once at the
// edge; everything downstream branches on the typed value, never on raw
// strings.
type InputType string

const (
	// InputText routes through the deterministic direct matcher.
	InputText InputType = "text"
	// InputVoice routes through the classifier and the detection merger.
	InputVoice InputType = "voice"
)

// ParseInputType validates and normalizes a raw input type string.
func ParseInputType(raw string) (InputType, error) {
	switch InputType(strings.ToLower(strings.TrimSpace(raw))) {
	case InputText:
		return InputText, nil
	case InputVoice:
		return InputVoice, nil
	default:
		return "", errors.Newf("unsupported input type %q, expected %q or %q", raw, InputText, InputVoice).
			Component("selection").
			Category(errors.CategoryInvalidInput).
			Build()
	}
}

func (t InputType) String() string {
	return string(t)
}
