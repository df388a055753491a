package models

import "strings"

// Question is one item in the exam catalog. Options are ordered; for
// multiple-choice the flagged option is the answer key, for fill-in its
// content is the canonical text used for normalized matching.
type Question struct {
	ID            uint             `gorm:"primaryKey" json:"id"`
	Prompt        string           `gorm:"type:text;not null" json:"prompt"`
	Type          string           `gorm:"size:32;not null" json:"type"`
	Difficulty    string           `gorm:"size:5;not null" json:"difficulty"`
	SkillCategory string           `gorm:"size:20;not null" json:"skill_category"`
	Keywords      string           `gorm:"size:255" json:"keywords"`
	IsActive      bool             `gorm:"default:true" json:"is_active"`
	Options       []QuestionOption `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"options"`
}

// QuestionOption is a candidate answer attached to a question.
type QuestionOption struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	QuestionID uint   `gorm:"index;not null" json:"question_id"`
	Content    string `gorm:"type:text;not null" json:"content"`
	IsCorrect  bool   `gorm:"default:false" json:"is_correct"`
	Position   int    `gorm:"default:0" json:"position"`
}

const (
	// QuestionTypeMultipleChoice is graded by exact option match.
	QuestionTypeMultipleChoice = "multiple_choice"
	// QuestionTypeFillIn is graded by normalized text match against the correct option.
	QuestionTypeFillIn = "fill_in"
	// QuestionTypeWriting is graded by the hybrid text evaluator.
	QuestionTypeWriting = "writing"
	// QuestionTypeSpeaking is transcribed, then graded by the hybrid text evaluator.
	QuestionTypeSpeaking = "speaking"
)

const (
	// SkillReading is the reading comprehension skill category.
	SkillReading = "reading"
	// SkillWriting is the written production skill category.
	SkillWriting = "writing"
	// SkillListening is the listening comprehension skill category.
	SkillListening = "listening"
	// SkillSpeaking is the spoken production skill category.
	SkillSpeaking = "speaking"
)

// Skills lists the four skill categories making up one exam cycle.
var Skills = []string{SkillReading, SkillWriting, SkillListening, SkillSpeaking}

// IsSkill reports whether name is one of the four skill categories.
func IsSkill(name string) bool {
	for _, s := range Skills {
		if s == name {
			return true
		}
	}
	return false
}

// CorrectOption returns the option flagged as the answer key, if any.
func (q Question) CorrectOption() *QuestionOption {
	for i := range q.Options {
		if q.Options[i].IsCorrect {
			return &q.Options[i]
		}
	}
	return nil
}

// KeywordList splits the comma-delimited keyword hints into trimmed terms.
func (q Question) KeywordList() []string {
	if strings.TrimSpace(q.Keywords) == "" {
		return nil
	}
	parts := strings.Split(q.Keywords, ",")
	keywords := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			keywords = append(keywords, trimmed)
		}
	}
	return keywords
}
