package ai

import (
	"context"
	"fmt"
	"strings"
)

// advancedVocabulary marks connective and academic terms whose complete
// absence caps the deterministic score at 65.
var advancedVocabulary = []string{
	"however", "therefore", "furthermore", "although", "despite",
	"because", "since", "unless", "usually", "generally",
	"significant", "essential", "opportunity", "experience",
	"challenging", "rewarding", "consequently", "whereas",
}

const (
	weightLength     = 0.30
	weightDiversity  = 0.20
	weightComplexity = 0.20
	weightRelevance  = 0.30

	offTopicCap     = 35.0
	simpleVocabCap  = 65.0
	minimumTextSize = 5
)

// RuleBasedEvaluator is the deterministic fallback used when the remote
// evaluator is unavailable. It combines four weighted linguistic sub-scores
// and never errors.
type RuleBasedEvaluator struct{}

// NewRuleBasedEvaluator constructs the fallback evaluator.
func NewRuleBasedEvaluator() *RuleBasedEvaluator {
	return &RuleBasedEvaluator{}
}

// Evaluate scores the text from word count, lexical diversity, readability
// and keyword relevance.
func (e *RuleBasedEvaluator) Evaluate(_ context.Context, input EvaluationInput) (EvaluationResult, error) {
	text := strings.TrimSpace(input.Text)
	if len(text) < minimumTextSize {
		return EvaluationResult{
			Score:         10,
			Feedback:      "Text is too short to evaluate.",
			CorrectedText: text,
		}, nil
	}

	words := strings.Fields(text)
	textLower := strings.ToLower(text)

	lengthScore := min100(float64(len(words)) / 60.0 * 100)

	unique := make(map[string]struct{}, len(words))
	for _, w := range words {
		unique[strings.ToLower(w)] = struct{}{}
	}
	diversityRatio := float64(len(unique)) / float64(len(words))
	diversityScore := min100(diversityRatio / 0.6 * 100)

	complexityScore := 50.0
	if ease, ok := fleschReadingEase(text); ok {
		complexityScore = clamp(100-ease, 0, 100)
	}

	relevanceScore := 100.0
	offTopic := false
	if len(input.Keywords) > 0 {
		matches := 0
		for _, keyword := range input.Keywords {
			if strings.Contains(textLower, strings.ToLower(strings.TrimSpace(keyword))) {
				matches++
			}
		}
		switch {
		case matches == 0:
			relevanceScore = 40
			offTopic = true
		case matches == 1:
			relevanceScore = 70
		case matches == 2:
			relevanceScore = 85
		default:
			relevanceScore = 100
		}
	}

	hasAdvanced := false
	for _, marker := range advancedVocabulary {
		if strings.Contains(textLower, marker) {
			hasAdvanced = true
			break
		}
	}

	raw := lengthScore*weightLength +
		diversityScore*weightDiversity +
		complexityScore*weightComplexity +
		relevanceScore*weightRelevance
	final := clamp(raw, 0, 100)

	var caps []string
	if offTopic && final > offTopicCap {
		final = offTopicCap
		caps = append(caps, "the answer does not mention the expected topic keywords")
	}
	if !hasAdvanced && final > simpleVocabCap {
		final = simpleVocabCap
		caps = append(caps, "no advanced vocabulary or linking words were used")
	}

	feedback := buildRuleBasedFeedback(final, caps)

	return EvaluationResult{
		Score:    final,
		Feedback: feedback,
		Suggestions: []string{
			"Try to use more academic vocabulary.",
			"Extend your sentences with conjunctions.",
		},
		CorrectedText: text,
	}, nil
}

func buildRuleBasedFeedback(score float64, caps []string) string {
	builder := strings.Builder{}
	builder.WriteString("Automated analysis performed. ")

	switch {
	case score > 70:
		builder.WriteString("Your vocabulary diversity and sentence structure are quite good.")
	case score > 50:
		builder.WriteString("Average text. You can improve by using conjunctions (however, because).")
	default:
		builder.WriteString("Your text is a bit short or simple. Try constructing longer sentences.")
	}

	for _, reason := range caps {
		builder.WriteString(fmt.Sprintf(" The score was capped because %s.", reason))
	}

	return builder.String()
}

func min100(v float64) float64 {
	if v > 100 {
		return 100
	}
	return v
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
