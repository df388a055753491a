package dto

import "github.com/noah-isme/lingua-go-api/internal/models"

// OptionCreateRequest defines one candidate answer in a new question.
type OptionCreateRequest struct {
	Content   string `json:"content" validate:"required"`
	IsCorrect bool   `json:"is_correct"`
	Position  int    `json:"position" validate:"gte=0"`
}

// QuestionCreateRequest is the admin payload for adding to the catalog.
type QuestionCreateRequest struct {
	Prompt        string                `json:"prompt" validate:"required,min=3"`
	Type          string                `json:"type" validate:"required,oneof=multiple_choice fill_in writing speaking"`
	Difficulty    string                `json:"difficulty" validate:"required,oneof=A1 A2 B1 B2 C1 C2"`
	SkillCategory string                `json:"skill_category" validate:"required,oneof=reading writing listening speaking"`
	Keywords      string                `json:"keywords" validate:"omitempty,max=255"`
	Options       []OptionCreateRequest `json:"options" validate:"omitempty,dive"`
}

// QuestionListFilter narrows admin catalog listings.
type QuestionListFilter struct {
	Skill      *string `query:"skill" validate:"omitempty,oneof=reading writing listening speaking"`
	Difficulty *string `query:"difficulty" validate:"omitempty,oneof=A1 A2 B1 B2 C1 C2"`
	Type       *string `query:"type" validate:"omitempty,oneof=multiple_choice fill_in writing speaking"`
	ActiveOnly bool    `query:"active_only"`
}

// AdminOptionResponse is the full option view, answer key included.
type AdminOptionResponse struct {
	ID        uint   `json:"id"`
	Content   string `json:"content"`
	IsCorrect bool   `json:"is_correct"`
	Position  int    `json:"position"`
}

// AdminQuestionResponse is the full catalog view for administrators.
type AdminQuestionResponse struct {
	ID            uint                  `json:"id"`
	Prompt        string                `json:"prompt"`
	Type          string                `json:"type"`
	Difficulty    string                `json:"difficulty"`
	SkillCategory string                `json:"skill_category"`
	Keywords      string                `json:"keywords"`
	IsActive      bool                  `json:"is_active"`
	Options       []AdminOptionResponse `json:"options"`
}

// ScoreOverrideRequest is the admin payload for replacing a session score.
type ScoreOverrideRequest struct {
	Score float64 `json:"score" validate:"gte=0,lte=100"`
}

// NewAdminQuestionResponse maps a question with its answer key.
func NewAdminQuestionResponse(question models.Question) AdminQuestionResponse {
	options := make([]AdminOptionResponse, 0, len(question.Options))
	for _, option := range question.Options {
		options = append(options, AdminOptionResponse{
			ID:        option.ID,
			Content:   option.Content,
			IsCorrect: option.IsCorrect,
			Position:  option.Position,
		})
	}

	return AdminQuestionResponse{
		ID:            question.ID,
		Prompt:        question.Prompt,
		Type:          question.Type,
		Difficulty:    question.Difficulty,
		SkillCategory: question.SkillCategory,
		Keywords:      question.Keywords,
		IsActive:      question.IsActive,
		Options:       options,
	}
}

// NewAdminQuestionResponseSlice maps a catalog listing.
func NewAdminQuestionResponseSlice(questions []models.Question) []AdminQuestionResponse {
	responses := make([]AdminQuestionResponse, 0, len(questions))
	for _, question := range questions {
		responses = append(responses, NewAdminQuestionResponse(question))
	}
	return responses
}
