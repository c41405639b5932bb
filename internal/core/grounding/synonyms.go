package grounding

import "strings"

// synonymGroups let related terms boost each other: a "cost" question should
// reward a line that only says "pricing". The groups reflect the vocabulary
// of the support documents this engine was tuned on; they are tunable, not
// load-bearing.
var synonymGroups = [][]string{
	{"price", "prices", "pricing", "cost", "costs", "fee", "fees", "billing", "charge", "charges", "subscription", "plan", "plans"},
	{"refund", "refunds", "return", "returns", "reimbursement", "money-back"},
	{"cancel", "cancels", "cancellation", "terminate", "unsubscribe"},
	{"support", "help", "assistance", "contact"},
	{"account", "profile", "login", "signin", "password", "credentials"},
	{"ship", "shipping", "delivery", "deliver", "dispatch"},
	{"install", "installation", "setup", "configure", "configuration"},
}

// pricingWords marks a query as pricing-intent. Kept as a subset of the
// pricing synonym group.
var pricingWords = map[string]struct{}{
	"price": {}, "prices": {}, "pricing": {}, "cost": {}, "costs": {},
	"fee": {}, "fees": {}, "billing": {}, "charge": {}, "charges": {},
	"subscription": {},
}

var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "are": {}, "but": {}, "not": {},
	"you": {}, "your": {}, "yours": {}, "all": {}, "any": {}, "can": {},
	"had": {}, "has": {}, "have": {}, "him": {}, "her": {}, "its": {},
	"our": {}, "out": {}, "was": {}, "were": {}, "what": {}, "when": {},
	"where": {}, "which": {}, "who": {}, "whom": {}, "why": {}, "how": {},
	"with": {}, "this": {}, "that": {}, "these": {}, "those": {},
	"about": {}, "does": {}, "did": {}, "doing": {}, "would": {},
	"could": {}, "should": {}, "there": {}, "their": {}, "they": {},
	"them": {}, "then": {}, "than": {}, "into": {}, "onto": {},
	"from": {}, "some": {}, "such": {}, "only": {}, "very": {},
	"tell": {}, "please": {}, "know": {}, "want": {}, "need": {},
}

// synonymGroupHit reports whether a line contains a different member of any
// group the query word belongs to.
func synonymGroupHit(word, lowerLine string) bool {
	for _, group := range synonymGroups {
		inGroup := false
		for _, member := range group {
			if member == word {
				inGroup = true
				break
			}
		}
		if !inGroup {
			continue
		}
		for _, member := range group {
			if member == word {
				continue
			}
			if containsWord(lowerLine, member) {
				return true
			}
		}
	}
	return false
}

func containsWord(lowerLine, word string) bool {
	for start := 0; start < len(lowerLine); {
		i := strings.Index(lowerLine[start:], word)
		if i < 0 {
			return false
		}
		i += start
		before := i == 0 || !isWordChar(lowerLine[i-1])
		end := i + len(word)
		after := end >= len(lowerLine) || !isWordChar(lowerLine[end])
		if before && after {
			return true
		}
		start = i + 1
	}
	return false
}

func isWordChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= '0' && c <= '9' || c == '-'
}
