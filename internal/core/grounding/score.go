package grounding

import (
	"regexp"
	"strings"
)

// queryIntent captures coarse signals used to boost or penalize lines.
// Intents are not exclusive; a query can be both a definition question and a
// pricing question.
type queryIntent struct {
	definition bool
	howTo      bool
	pricing    bool
}

const (
	keywordHitScore     = 1.0
	synonymHitScore     = 0.5
	overviewBoost       = 1.5
	stepPenalty         = 1.0
	stepBoost           = 1.0
	currencyBoost       = 2.0
	minExtractableScore = 0.0
)

var (
	stepLinePattern     = regexp.MustCompile(`^\s*(\d+[.)]\s|step\s+\d|click\s|go to\s|select\s|press\s|open\s|navigate\s)`)
	currencyPattern     = regexp.MustCompile(`[$€£]|\d+\s?(usd|eur|gbp)\b`)
	sourceMarkerPattern = regexp.MustCompile(`(?i)\s*[\[(](source|doc|document|page|file)[^\])]*[\])]`)
)

// extractAnswer picks the context line most relevant to the query and trims
// it to its first sentence. Returns "" when no line scores above zero, which
// favors precision over recall: a short directly relevant answer or nothing.
func extractAnswer(query, context string) string {
	words := significantWords(query)
	if len(words) == 0 {
		return ""
	}
	intent := detectIntent(query)

	bestScore := minExtractableScore
	bestLine := ""
	for _, line := range strings.Split(context, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		// Strictly-greater keeps the earliest line on ties.
		if score := scoreLine(line, words, intent); score > bestScore {
			bestScore = score
			bestLine = line
		}
	}
	if bestLine == "" {
		return ""
	}
	return strings.TrimSpace(stripSourceMarkers(firstSentence(bestLine)))
}

func scoreLine(line string, queryWords []string, intent queryIntent) float64 {
	lower := strings.ToLower(line)

	var score float64
	for _, w := range queryWords {
		if strings.Contains(lower, w) {
			score += keywordHitScore
		}
		if synonymGroupHit(w, lower) {
			score += synonymHitScore
		}
	}

	isStep := stepLinePattern.MatchString(lower)
	if intent.definition {
		if looksLikeOverview(lower) {
			score += overviewBoost
		}
		if isStep {
			score -= stepPenalty
		}
	}
	if intent.howTo && isStep {
		score += stepBoost
	}
	if intent.pricing && currencyPattern.MatchString(lower) {
		score += currencyBoost
	}
	return score
}

func detectIntent(query string) queryIntent {
	norm := normalizeQuery(query)
	intent := queryIntent{}
	for _, prefix := range []string{"what is", "what are", "what's", "tell me about", "explain"} {
		if strings.HasPrefix(norm, prefix) {
			intent.definition = true
			break
		}
	}
	for _, prefix := range []string{"how do", "how to", "how can", "how does"} {
		if strings.HasPrefix(norm, prefix) {
			intent.howTo = true
			break
		}
	}
	for _, w := range strings.Fields(norm) {
		if _, ok := pricingWords[w]; ok {
			intent.pricing = true
			break
		}
	}
	return intent
}

// significantWords keeps lowercase query words longer than two characters
// that are not stop-words.
func significantWords(query string) []string {
	fields := strings.Fields(strings.ToLower(query))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, ".,!?;:\"'")
		if len(f) <= 2 {
			continue
		}
		if _, stop := stopWords[f]; stop {
			continue
		}
		out = append(out, f)
	}
	return out
}

// looksLikeOverview spots descriptive statements, the kind a "what is"
// question wants over procedural steps.
func looksLikeOverview(lower string) bool {
	for _, marker := range []string{" is ", " are ", " allows ", " provides ", " offers ", " means "} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func firstSentence(text string) string {
	text = strings.TrimSpace(text)
	for i := 0; i < len(text)-1; i++ {
		if (text[i] == '.' || text[i] == '!' || text[i] == '?') && (text[i+1] == ' ' || text[i+1] == '\n') {
			return text[:i+1]
		}
	}
	return text
}

func stripSourceMarkers(text string) string {
	return sourceMarkerPattern.ReplaceAllString(text, "")
}
