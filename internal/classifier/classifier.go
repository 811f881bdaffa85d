// Package classifier defines the boundary to the external text-classification
// capability and its default chat-completions implementation. The engine only
// owns the contract: the utterance and the closed label set go in, an ordered
// list of mentioned label names comes out.
package classifier

import (
	"context"

	"github.com/tablevox/prefsel/internal/logging"
)

var logger = logging.ForService("classifier")

// Capability classifies a free-form utterance against a closed label set.
//
// Implementations must behave as a pure function over (utterance, labels):
// no session state is carried between calls. The returned names are drawn
// only from labels, ordered by first mention. Mentions wrapped in an explicit
// negation are excluded, and utterances claiming all labels resolve to an
// empty list so the caller's default policy applies.
//
// A failed boundary call (timeout, malformed payload, auth or quota failure)
// must surface as a ClassifierUnavailable error, never as an empty list: the
// caller has to distinguish "found nothing" from "could not ask".
type Capability interface {
	Classify(ctx context.Context, utterance string, labels []string) ([]string, error)
}
