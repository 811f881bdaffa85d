package classifier

import (
	"fmt"
	"strings"
)

// noneToken is what the model must answer when no label survives the negation
// and universal-quantifier rules. Parsed back into an empty candidate list.
const noneToken = "none"

// BuildPrompt renders the classification instruction for one utterance.
//
// The label set is closed: the model may only answer with names from it. The
// negation and "all of them" rules are part of the wire contract, so the
// merger downstream never has to reason about phrasing, only about names.
func BuildPrompt(utterance string, labels []string) string {
	var b strings.Builder

	b.WriteString("You are a selection detection assistant. ")
	b.WriteString("Analyze the following text and identify which of the available options the speaker actually wants or claims.\n\n")

	fmt.Fprintf(&b, "User text: %q\n\n", utterance)

	b.WriteString("Available options:\n")
	for _, label := range labels {
		fmt.Fprintf(&b, "- %s\n", label)
	}

	b.WriteString("\nInstructions:\n")
	b.WriteString("1. Return only option names from the list above, exactly as written.\n")
	b.WriteString("2. If multiple options are mentioned, return them as a comma-separated list, in the order they are first mentioned.\n")
	fmt.Fprintf(&b, "3. If a mention is negated (\"I don't know X\", \"I don't want X\", \"not X\"), exclude it. If nothing remains, return %q.\n", noneToken)
	fmt.Fprintf(&b, "4. If the text claims all options (\"I know all of them\", \"I want everything\"), return %q.\n", noneToken)
	fmt.Fprintf(&b, "5. If no option is mentioned at all, return %q.\n", noneToken)
	b.WriteString("6. Return only the names or the single word above, nothing else.\n")

	b.WriteString("\nExamples:\n")
	b.WriteString("- \"I speak Spanish\" -> Spanish\n")
	b.WriteString("- \"I can speak French, but I also understand German\" -> French, German\n")
	b.WriteString("- \"I don't know Chinese\" -> none\n")
	b.WriteString("- \"I know all languages\" -> none\n")
	b.WriteString("- \"I need both delivery and catering\" -> Delivery, Catering\n")

	b.WriteString("\nResponse:")
	return b.String()
}

// ParseCandidates parses the model's comma-separated answer into an ordered
// candidate list. The none token, empty fragments and surrounding whitespace
// are dropped; everything else is passed through for the merger to validate.
func ParseCandidates(response string) []string {
	response = strings.TrimSpace(response)
	if response == "" {
		return nil
	}

	var candidates []string
	for _, part := range strings.Split(response, ",") {
		name := strings.TrimSpace(part)
		if name == "" || strings.EqualFold(name, noneToken) {
			continue
		}
		candidates = append(candidates, name)
	}
	return candidates
}
