package models

// LevelRecord tracks a student's CEFR progression. A nil skill level means
// the skill has not been completed in the current cycle; the overall level
// is never nil and survives cycle resets as the last-known summary.
type LevelRecord struct {
	ID             uint    `gorm:"primaryKey" json:"id"`
	StudentID      uint    `gorm:"uniqueIndex;not null" json:"student_id"`
	ReadingLevel   *string `gorm:"size:5" json:"reading_level"`
	WritingLevel   *string `gorm:"size:5" json:"writing_level"`
	ListeningLevel *string `gorm:"size:5" json:"listening_level"`
	SpeakingLevel  *string `gorm:"size:5" json:"speaking_level"`
	OverallLevel   string  `gorm:"size:5;not null;default:A1" json:"overall_level"`
}

// LevelForScore maps a 0-100 score onto a CEFR proficiency code.
func LevelForScore(score float64) string {
	switch {
	case score >= 85:
		return "C1"
	case score >= 70:
		return "B2"
	case score >= 50:
		return "B1"
	case score >= 30:
		return "A2"
	default:
		return "A1"
	}
}

// LevelPoints converts a CEFR code to the point value used for overall-level
// averaging. Unknown or absent levels count as A1.
func LevelPoints(level string) float64 {
	switch level {
	case "C1", "C2":
		return 100
	case "B2":
		return 80
	case "B1":
		return 60
	case "A2":
		return 40
	default:
		return 20
	}
}

// SkillLevel returns a pointer to the record field for the given skill
// category, or nil when the name is not one of the four skills.
func (r *LevelRecord) SkillLevel(skill string) **string {
	switch skill {
	case SkillReading:
		return &r.ReadingLevel
	case SkillWriting:
		return &r.WritingLevel
	case SkillListening:
		return &r.ListeningLevel
	case SkillSpeaking:
		return &r.SpeakingLevel
	default:
		return nil
	}
}

// CompletedSkills lists the skills already attempted in the current cycle.
func (r LevelRecord) CompletedSkills() []string {
	completed := make([]string, 0, 4)
	if r.ReadingLevel != nil {
		completed = append(completed, SkillReading)
	}
	if r.WritingLevel != nil {
		completed = append(completed, SkillWriting)
	}
	if r.ListeningLevel != nil {
		completed = append(completed, SkillListening)
	}
	if r.SpeakingLevel != nil {
		completed = append(completed, SkillSpeaking)
	}
	return completed
}

// CycleComplete reports whether all four skills have been attempted.
func (r LevelRecord) CycleComplete() bool {
	return len(r.CompletedSkills()) == len(Skills)
}
