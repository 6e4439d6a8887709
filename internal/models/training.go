package models

import "time"

// Training session types the API understands.
const (
	TrainingTechnique    = "technique"
	TrainingConditioning = "conditioning"
	TrainingSparring     = "sparring"
	TrainingMixed        = "mixed"
	TrainingCardio       = "cardio"
	TrainingStrength     = "strength"
)

// SessionRequest starts a training session.
type SessionRequest struct {
	Type     string `json:"type"`
	Duration int    `json:"duration"` // planned minutes
}

// TrainingSession is a started or finished training session.
type TrainingSession struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Type      string    `json:"type"`
	Duration  int       `json:"duration"`
	Score     float64   `json:"score,omitempty"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at,omitzero"`
}

// Active reports whether the session has not been ended.
func (s TrainingSession) Active() bool {
	return s.EndedAt.IsZero()
}

// Achievement is something a user earned during training.
type Achievement struct {
	Name string `json:"name"`
	Date string `json:"date,omitempty"`
}

// SessionSummary is returned when a session ends.
type SessionSummary struct {
	SessionID           string        `json:"session_id"`
	DurationMinutes     int           `json:"duration_minutes"`
	TechniquesPracticed []string      `json:"techniques_practiced"`
	Achievements        []Achievement `json:"achievements"`
}

// Technique is an entry in the technique library.
type Technique struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	Difficulty  string `json:"difficulty"`
	Description string `json:"description"`
}

// PracticeResult records one practice run of a technique.
type PracticeResult struct {
	Repetitions int     `json:"repetitions"`
	Score       float64 `json:"score"`
	Notes       string  `json:"notes,omitempty"`
}

// ProgressEntry is one recorded progress data point.
type ProgressEntry struct {
	ID       string    `json:"id,omitempty"`
	Metric   string    `json:"metric"`
	Value    float64   `json:"value"`
	Recorded time.Time `json:"recorded,omitzero"`
}

// SkillProgress is the current score of one skill.
type SkillProgress struct {
	Skill string  `json:"skill"`
	Score float64 `json:"score"`
}

// VideoUpload is returned by the video upload endpoint.
type VideoUpload struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// VideoAnalysis is the analysis or feedback for an uploaded video.
type VideoAnalysis struct {
	VideoID  string   `json:"video_id"`
	Status   string   `json:"status"`
	Summary  string   `json:"summary,omitempty"`
	Feedback []string `json:"feedback,omitempty"`
}
