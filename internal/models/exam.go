package models

import (
	"time"

	"gorm.io/datatypes"
)

// ExamSession is one timed attempt at a single skill. The question draw is
// frozen into QuestionIDs at creation so a resume returns the same set.
type ExamSession struct {
	ID            uint                        `gorm:"primaryKey" json:"id"`
	StudentID     uint                        `gorm:"index;not null" json:"student_id"`
	Skill         string                      `gorm:"size:20;not null" json:"skill"`
	Difficulty    string                      `gorm:"size:5;not null" json:"difficulty"`
	StartTime     time.Time                   `json:"start_time"`
	EndTime       time.Time                   `json:"end_time"`
	LastActivity  time.Time                   `json:"last_activity"`
	Status        string                      `gorm:"size:20;not null;default:IN_PROGRESS" json:"status"`
	OverallScore  float64                     `gorm:"default:0" json:"overall_score"`
	DetectedLevel *string                     `gorm:"size:5" json:"detected_level"`
	Feedback      string                      `gorm:"type:text" json:"feedback"`
	QuestionIDs   datatypes.JSONSlice[uint]   `json:"question_ids"`
	CompletedAt   *time.Time                  `json:"completed_at"`
	Answers       []Answer                    `gorm:"foreignKey:SessionID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"answers"`
}

const (
	// SessionStatusInProgress is the only state accepting writes.
	SessionStatusInProgress = "IN_PROGRESS"
	// SessionStatusCompleted marks a finalized, scored session.
	SessionStatusCompleted = "COMPLETED"
	// SessionStatusAbandoned marks a session the student explicitly gave up.
	SessionStatusAbandoned = "ABANDONED"
	// SessionStatusExpired marks a session whose deadline passed before finalize.
	SessionStatusExpired = "EXPIRED"
)

// IsActive reports whether the session still accepts answers.
func (s ExamSession) IsActive() bool {
	return s.Status == SessionStatusInProgress
}

// IsPastDeadline reports whether the configured end time has passed.
func (s ExamSession) IsPastDeadline(now time.Time) bool {
	return !s.EndTime.IsZero() && now.After(s.EndTime)
}

// Answer is the single stored response for a (session, question) pair.
// Content doubles as the transcript store for speaking answers.
type Answer struct {
	ID               uint     `gorm:"primaryKey" json:"id"`
	SessionID        uint     `gorm:"uniqueIndex:idx_session_question;not null" json:"session_id"`
	QuestionID       uint     `gorm:"uniqueIndex:idx_session_question;not null" json:"question_id"`
	SelectedOptionID *uint    `json:"selected_option_id"`
	Content          string   `gorm:"type:text" json:"content"`
	AudioURL         *string  `gorm:"size:512" json:"audio_url"`
	IsCorrect        *bool    `json:"is_correct"`
	Score            *float64 `json:"score"`
	ListenCount      int      `gorm:"default:0" json:"listen_count"`
}
