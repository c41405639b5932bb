package grounding

import "strings"

type queryKind int

const (
	queryContent queryKind = iota
	queryGreeting
	queryThanks
	queryGoodbye
)

var (
	greetingPhrases = []string{"hi", "hello", "hey", "howdy", "good morning", "good afternoon", "good evening"}
	thanksPhrases   = []string{"thanks", "thank you", "thx", "ty", "appreciate it", "much appreciated"}
	goodbyePhrases  = []string{"bye", "goodbye", "see you", "see ya", "good night", "take care"}
)

// classifyQuery separates small-talk from content questions. Only short
// queries can be conversational; anything longer is treated as a question
// even when it opens with a greeting.
func classifyQuery(query string) queryKind {
	norm := normalizeQuery(query)
	if norm == "" {
		return queryContent
	}
	if len(strings.Fields(norm)) > 4 {
		return queryContent
	}

	switch {
	case matchesPhrase(norm, greetingPhrases):
		return queryGreeting
	case matchesPhrase(norm, thanksPhrases):
		return queryThanks
	case matchesPhrase(norm, goodbyePhrases):
		return queryGoodbye
	default:
		return queryContent
	}
}

func cannedResponse(kind queryKind) string {
	switch kind {
	case queryGreeting:
		return "Hello! Ask me anything about the documents in your knowledge base."
	case queryThanks:
		return "You're welcome! Let me know if you have more questions."
	case queryGoodbye:
		return "Goodbye! Come back anytime you need to look something up."
	default:
		return notFoundMessage
	}
}

func normalizeQuery(query string) string {
	norm := strings.ToLower(strings.TrimSpace(query))
	return strings.TrimRight(norm, ".!? ")
}

func matchesPhrase(norm string, phrases []string) bool {
	for _, p := range phrases {
		if norm == p || strings.HasPrefix(norm, p+" ") || strings.HasSuffix(norm, " "+p) {
			return true
		}
	}
	return false
}
