package dto

import (
	"time"

	"github.com/noah-isme/lingua-go-api/internal/models"
)

// LevelProfileResponse is the student's CEFR progression view.
type LevelProfileResponse struct {
	StudentID      uint              `json:"student_id"`
	ReadingLevel   *string           `json:"reading_level"`
	WritingLevel   *string           `json:"writing_level"`
	ListeningLevel *string           `json:"listening_level"`
	SpeakingLevel  *string           `json:"speaking_level"`
	OverallLevel   string            `json:"overall_level"`
	RecentSessions []SessionResponse `json:"recent_sessions"`
	GeneratedAt    time.Time         `json:"generated_at"`
	CacheHit       bool              `json:"cache_hit"`
}

// NewLevelProfileResponse maps a level record plus recent session history.
func NewLevelProfileResponse(record models.LevelRecord, sessions []models.ExamSession, generatedAt time.Time) LevelProfileResponse {
	recent := make([]SessionResponse, 0, len(sessions))
	for _, session := range sessions {
		recent = append(recent, NewSessionResponse(session))
	}

	return LevelProfileResponse{
		StudentID:      record.StudentID,
		ReadingLevel:   record.ReadingLevel,
		WritingLevel:   record.WritingLevel,
		ListeningLevel: record.ListeningLevel,
		SpeakingLevel:  record.SpeakingLevel,
		OverallLevel:   record.OverallLevel,
		RecentSessions: recent,
		GeneratedAt:    generatedAt,
	}
}
