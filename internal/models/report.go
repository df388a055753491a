package models

import (
	"time"

	"gorm.io/datatypes"
)

// FeedbackReport is the persisted scoring summary for a finalized session.
// ScoreBreakdown holds the per-skill scores as a JSON object.
type FeedbackReport struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	SessionID       uint           `gorm:"uniqueIndex;not null" json:"session_id"`
	Recommendations string         `gorm:"type:text" json:"recommendations"`
	OverallScore    float64        `json:"overall_score"`
	ScoreBreakdown  datatypes.JSON `json:"score_breakdown"`
	GeneratedAt     time.Time      `json:"generated_at"`
}
