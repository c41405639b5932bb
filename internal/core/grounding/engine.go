// Package grounding turns ranked retrieval matches into a final answer,
// applying a quality gate: retrieved text is only trusted when at least one
// match clears the high-quality similarity threshold. The engine is a pure
// function of its inputs and never raises on missing context; "no
// information" is a regular branch of the policy.
package grounding

import (
	"strings"

	"github.com/antonved/knowledge-engine/internal/core/domain"
)

// Config holds the policy constants. The thresholds and confidences are
// empirically chosen, tunable values, not calibrated statistics.
type Config struct {
	HighQualityThreshold     float64
	GroundedConfidence       float64
	ConversationalConfidence float64
	NotFoundConfidence       float64
	MaxSources               int
}

func DefaultConfig() Config {
	return Config{
		HighQualityThreshold:     0.5,
		GroundedConfidence:       0.9,
		ConversationalConfidence: 0.8,
		NotFoundConfidence:       0.3,
		MaxSources:               3,
	}
}

type Engine struct {
	cfg Config
}

func NewEngine(cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.HighQualityThreshold <= 0 {
		cfg.HighQualityThreshold = def.HighQualityThreshold
	}
	if cfg.GroundedConfidence <= 0 {
		cfg.GroundedConfidence = def.GroundedConfidence
	}
	if cfg.ConversationalConfidence <= 0 {
		cfg.ConversationalConfidence = def.ConversationalConfidence
	}
	if cfg.NotFoundConfidence <= 0 {
		cfg.NotFoundConfidence = def.NotFoundConfidence
	}
	if cfg.MaxSources <= 0 {
		cfg.MaxSources = def.MaxSources
	}
	return &Engine{cfg: cfg}
}

const notFoundMessage = "I couldn't find information about that in the uploaded documents. " +
	"Try rephrasing your question, or upload a document that covers this topic."

// Answer applies the grounding policy:
//
//  1. no matches at all -> canned not-found, whatever the query says
//  2. conversational query -> canned answer for its subtype
//  3. any match at or above the threshold -> extract a grounded answer
//  4. only weak matches -> not-found, but surface them as sources
func (e *Engine) Answer(query string, matches []domain.RetrievalMatch) domain.Answer {
	if len(matches) == 0 {
		return e.notFound(nil)
	}

	if kind := classifyQuery(query); kind != queryContent {
		return domain.Answer{
			Message:    cannedResponse(kind),
			Confidence: e.cfg.ConversationalConfidence,
			Source:     domain.AnswerSourceDefault,
			Sources:    []domain.AnswerSource{},
		}
	}

	high := make([]domain.RetrievalMatch, 0, len(matches))
	for _, m := range matches {
		if m.Similarity >= e.cfg.HighQualityThreshold {
			high = append(high, m)
		}
	}
	if len(high) == 0 {
		return e.notFound(matches)
	}

	texts := make([]string, len(high))
	for i, m := range high {
		texts[i] = m.Embedding.Text
	}
	context := strings.Join(texts, "\n")

	message := extractAnswer(query, context)
	if message == "" {
		// Scoring found nothing to prefer; fall back to the opening of the
		// best match rather than fabricating text.
		message = stripSourceMarkers(firstSentence(high[0].Embedding.Text))
	}

	return domain.Answer{
		Message:    message,
		Confidence: e.cfg.GroundedConfidence,
		Source:     domain.AnswerSourceDocument,
		Sources:    e.toSources(high),
	}
}

func (e *Engine) notFound(matches []domain.RetrievalMatch) domain.Answer {
	return domain.Answer{
		Message:    notFoundMessage,
		Confidence: e.cfg.NotFoundConfidence,
		Source:     domain.AnswerSourceDefault,
		Sources:    e.toSources(matches),
	}
}

func (e *Engine) toSources(matches []domain.RetrievalMatch) []domain.AnswerSource {
	n := len(matches)
	if n > e.cfg.MaxSources {
		n = e.cfg.MaxSources
	}
	out := make([]domain.AnswerSource, 0, n)
	for _, m := range matches[:n] {
		out = append(out, domain.AnswerSource{Text: m.Embedding.Text, Similarity: m.Similarity})
	}
	return out
}
