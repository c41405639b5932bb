package domain

// Answer.Source values. "pdf" marks an answer grounded in retrieved document
// text, "default" a canned policy response.
const (
	AnswerSourceDocument = "pdf"
	AnswerSourceDefault  = "default"
)

type AnswerSource struct {
	Text       string  `json:"text"`
	Similarity float64 `json:"similarity"`
}

// Answer is the final response of the grounding engine. Confidence is a
// policy constant, not a calibrated probability: fixed values distinguish
// grounded answers from default fallbacks.
type Answer struct {
	Message    string         `json:"message"`
	Confidence float64        `json:"confidence"`
	Source     string         `json:"source"`
	Sources    []AnswerSource `json:"sources"`
}
