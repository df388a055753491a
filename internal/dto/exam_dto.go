package dto

import (
	"time"

	"github.com/noah-isme/lingua-go-api/internal/models"
)

// StartExamRequest asks for a new or resumed session in one skill.
type StartExamRequest struct {
	Skill      string `json:"skill" validate:"required,oneof=reading writing listening speaking"`
	Difficulty string `json:"difficulty" validate:"required,oneof=A1 A2 B1 B2 C1 C2"`
}

// AnswerSubmitRequest carries one answer for a question in the session.
type AnswerSubmitRequest struct {
	QuestionID       uint    `json:"question_id" validate:"required,gt=0"`
	SelectedOptionID *uint   `json:"selected_option_id" validate:"omitempty,gt=0"`
	Text             *string `json:"text"`
	ListenCount      *int    `json:"listen_count" validate:"omitempty,gte=0"`
}

// FinalizeRequest triggers scoring. FallbackSkill labels the zero-score entry
// recorded when the session produced no scoreable answers.
type FinalizeRequest struct {
	FallbackSkill string `json:"fallback_skill" validate:"omitempty,max=20"`
}

// ExamOptionResponse is an option as shown to an exam taker. The answer key
// flag is deliberately absent.
type ExamOptionResponse struct {
	ID       uint   `json:"id"`
	Content  string `json:"content"`
	Position int    `json:"position"`
}

// ExamQuestionResponse is a question as shown to an exam taker.
type ExamQuestionResponse struct {
	ID            uint                 `json:"id"`
	Prompt        string               `json:"prompt"`
	Type          string               `json:"type"`
	Difficulty    string               `json:"difficulty"`
	SkillCategory string               `json:"skill_category"`
	Options       []ExamOptionResponse `json:"options"`
}

// SessionResponse serializes an exam session.
type SessionResponse struct {
	ID            uint       `json:"id"`
	StudentID     uint       `json:"student_id"`
	Skill         string     `json:"skill"`
	Difficulty    string     `json:"difficulty"`
	StartTime     time.Time  `json:"start_time"`
	EndTime       time.Time  `json:"end_time"`
	LastActivity  time.Time  `json:"last_activity"`
	Status        string     `json:"status"`
	OverallScore  float64    `json:"overall_score"`
	DetectedLevel *string    `json:"detected_level"`
	Feedback      string     `json:"feedback"`
	CompletedAt   *time.Time `json:"completed_at"`
}

// SessionStartResponse bundles the session with its frozen question set.
type SessionStartResponse struct {
	Session   SessionResponse        `json:"session"`
	Questions []ExamQuestionResponse `json:"questions"`
	Resumed   bool                   `json:"resumed"`
}

// AnswerResponse serializes a stored answer.
type AnswerResponse struct {
	ID               uint     `json:"id"`
	SessionID        uint     `json:"session_id"`
	QuestionID       uint     `json:"question_id"`
	SelectedOptionID *uint    `json:"selected_option_id"`
	Content          string   `json:"content"`
	AudioURL         *string  `json:"audio_url"`
	IsCorrect        *bool    `json:"is_correct"`
	Score            *float64 `json:"score"`
	ListenCount      int      `json:"listen_count"`
}

// SessionDetailResponse is the full view of one session.
type SessionDetailResponse struct {
	Session SessionResponse  `json:"session"`
	Answers []AnswerResponse `json:"answers"`
}

// ExamResultResponse is returned by finalize.
type ExamResultResponse struct {
	SessionID     uint               `json:"session_id"`
	OverallScore  float64            `json:"overall_score"`
	DetectedLevel string             `json:"detected_level"`
	Feedback      string             `json:"feedback"`
	SkillScores   map[string]float64 `json:"skill_scores"`
}

// NewSessionResponse maps a session model to its response shape.
func NewSessionResponse(session models.ExamSession) SessionResponse {
	return SessionResponse{
		ID:            session.ID,
		StudentID:     session.StudentID,
		Skill:         session.Skill,
		Difficulty:    session.Difficulty,
		StartTime:     session.StartTime,
		EndTime:       session.EndTime,
		LastActivity:  session.LastActivity,
		Status:        session.Status,
		OverallScore:  session.OverallScore,
		DetectedLevel: session.DetectedLevel,
		Feedback:      session.Feedback,
		CompletedAt:   session.CompletedAt,
	}
}

// NewExamQuestionResponse maps a question without leaking the answer key.
func NewExamQuestionResponse(question models.Question) ExamQuestionResponse {
	options := make([]ExamOptionResponse, 0, len(question.Options))
	for _, option := range question.Options {
		options = append(options, ExamOptionResponse{
			ID:       option.ID,
			Content:  option.Content,
			Position: option.Position,
		})
	}

	return ExamQuestionResponse{
		ID:            question.ID,
		Prompt:        question.Prompt,
		Type:          question.Type,
		Difficulty:    question.Difficulty,
		SkillCategory: question.SkillCategory,
		Options:       options,
	}
}

// NewExamQuestionResponseSlice maps a set of questions.
func NewExamQuestionResponseSlice(questions []models.Question) []ExamQuestionResponse {
	responses := make([]ExamQuestionResponse, 0, len(questions))
	for _, question := range questions {
		responses = append(responses, NewExamQuestionResponse(question))
	}
	return responses
}

// NewAnswerResponse maps an answer model to its response shape.
func NewAnswerResponse(answer models.Answer) AnswerResponse {
	return AnswerResponse{
		ID:               answer.ID,
		SessionID:        answer.SessionID,
		QuestionID:       answer.QuestionID,
		SelectedOptionID: answer.SelectedOptionID,
		Content:          answer.Content,
		AudioURL:         answer.AudioURL,
		IsCorrect:        answer.IsCorrect,
		Score:            answer.Score,
		ListenCount:      answer.ListenCount,
	}
}

// NewSessionDetailResponse maps a session with its answers.
func NewSessionDetailResponse(session models.ExamSession) SessionDetailResponse {
	answers := make([]AnswerResponse, 0, len(session.Answers))
	for _, answer := range session.Answers {
		answers = append(answers, NewAnswerResponse(answer))
	}

	return SessionDetailResponse{
		Session: NewSessionResponse(session),
		Answers: answers,
	}
}
