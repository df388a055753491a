package ai

import "context"

// EvaluationInput carries an open-ended answer to be graded.
type EvaluationInput struct {
	Text     string
	Topic    string
	Level    string
	Keywords []string
}

// EvaluationResult is the structured judgment returned by an evaluator.
// Score is on the 0-100 scale used throughout the scoring engine.
type EvaluationResult struct {
	Score         float64                `json:"score"`
	Feedback      string                 `json:"feedback"`
	GrammarErrors []string               `json:"grammar_errors,omitempty"`
	Suggestions   []string               `json:"suggestions,omitempty"`
	CorrectedText string                 `json:"corrected_text,omitempty"`
	Raw           map[string]interface{} `json:"raw,omitempty"`
}

// Evaluator grades free text against a topic, target level and keyword hints.
type Evaluator interface {
	Evaluate(ctx context.Context, input EvaluationInput) (EvaluationResult, error)
}
