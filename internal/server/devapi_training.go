package server

import (
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/desertthunder/oracle/internal/models"
)

var trainingTypes = []string{
	models.TrainingTechnique,
	models.TrainingConditioning,
	models.TrainingSparring,
	models.TrainingMixed,
	models.TrainingCardio,
	models.TrainingStrength,
}

func (d *DevAPI) userStats(w http.ResponseWriter, r *http.Request, u *devUser) {
	if Var(r, "id") != u.user.ID {
		WriteError(w, http.StatusForbidden, "You can only view your own stats")
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	var stats models.UserStats
	days := map[string]bool{}
	for _, s := range d.sessions {
		if s.UserID != u.user.ID {
			continue
		}
		stats.TotalSessions++
		if !s.Active() {
			stats.TrainingTime += s.Duration
		}
		days[s.StartedAt.UTC().Format(models.DueDateLayout)] = true
	}

	learned := map[string]bool{}
	for _, p := range d.practice[u.user.ID] {
		learned[p.techniqueID] = true
	}
	stats.TechniquesLearned = len(learned)

	day := d.now().UTC()
	for days[day.Format(models.DueDateLayout)] {
		stats.CurrentStreak++
		day = day.AddDate(0, 0, -1)
	}

	WriteJSON(w, http.StatusOK, stats)
}

func (d *DevAPI) recentSessions(w http.ResponseWriter, r *http.Request, u *devUser) {
	if Var(r, "id") != u.user.ID {
		WriteError(w, http.StatusForbidden, "You can only view your own sessions")
		return
	}

	limit := 5
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			WriteError(w, http.StatusBadRequest, "limit must be a positive number")
			return
		}
		limit = n
	}

	sessions := d.userSessions(u.user.ID, func(models.TrainingSession) bool { return true })
	if len(sessions) > limit {
		sessions = sessions[:limit]
	}
	WriteJSON(w, http.StatusOK, sessions)
}

// userSessions returns the sessions of userID matching keep, newest first.
func (d *DevAPI) userSessions(userID string, keep func(models.TrainingSession) bool) []models.TrainingSession {
	d.mu.Lock()
	defer d.mu.Unlock()

	sessions := []models.TrainingSession{}
	for _, s := range d.sessions {
		if s.UserID == userID && keep(*s) {
			sessions = append(sessions, *s)
		}
	}
	slices.SortFunc(sessions, func(a, b models.TrainingSession) int {
		return b.StartedAt.Compare(a.StartedAt)
	})
	return sessions
}

func (d *DevAPI) startSession(w http.ResponseWriter, r *http.Request, u *devUser) {
	var req models.SessionRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Type == "" {
		req.Type = models.TrainingMixed
	}
	if !slices.Contains(trainingTypes, req.Type) {
		WriteError(w, http.StatusBadRequest, "Unknown training type "+strconv.Quote(req.Type))
		return
	}
	if req.Duration < 0 {
		WriteError(w, http.StatusBadRequest, "duration must not be negative")
		return
	}
	if req.Duration == 0 {
		req.Duration = 30
	}

	session := &models.TrainingSession{
		ID:        "session_" + uuid.New().String(),
		UserID:    u.user.ID,
		Type:      req.Type,
		Duration:  req.Duration,
		StartedAt: d.now().UTC(),
	}

	d.mu.Lock()
	d.sessions[session.ID] = session
	d.mu.Unlock()

	WriteJSON(w, http.StatusCreated, session)
}

func (d *DevAPI) listSessions(w http.ResponseWriter, r *http.Request, u *devUser) {
	query := r.URL.Query()
	kind := query.Get("type")
	active := query.Get("active")

	sessions := d.userSessions(u.user.ID, func(s models.TrainingSession) bool {
		if kind != "" && s.Type != kind {
			return false
		}
		switch active {
		case "true":
			return s.Active()
		case "false":
			return !s.Active()
		}
		return true
	})
	WriteJSON(w, http.StatusOK, sessions)
}

func (d *DevAPI) getSession(w http.ResponseWriter, r *http.Request, u *devUser) {
	d.mu.Lock()
	s, ok := d.sessions[Var(r, "id")]
	var session models.TrainingSession
	if ok {
		session = *s
	}
	d.mu.Unlock()

	if !ok || session.UserID != u.user.ID {
		WriteError(w, http.StatusNotFound, "Session not found")
		return
	}
	WriteJSON(w, http.StatusOK, session)
}

// endSession closes a session. Results may carry "score" (number) and "techniques" (list of names).
func (d *DevAPI) endSession(w http.ResponseWriter, r *http.Request, u *devUser) {
	results := map[string]any{}
	if err := DecodeJSON(r, &results); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	s, ok := d.sessions[Var(r, "id")]
	if !ok || s.UserID != u.user.ID {
		WriteError(w, http.StatusNotFound, "Session not found")
		return
	}
	if !s.Active() {
		WriteError(w, http.StatusConflict, "Session already ended")
		return
	}

	now := d.now().UTC()
	s.EndedAt = now
	if elapsed := int(now.Sub(s.StartedAt) / time.Minute); elapsed > 0 {
		s.Duration = elapsed
	}
	if score, ok := results["score"].(float64); ok {
		s.Score = score
	}

	summary := models.SessionSummary{
		SessionID:           s.ID,
		DurationMinutes:     s.Duration,
		TechniquesPracticed: []string{},
		Achievements:        []models.Achievement{},
	}
	if list, ok := results["techniques"].([]any); ok {
		for _, v := range list {
			if name, ok := v.(string); ok {
				summary.TechniquesPracticed = append(summary.TechniquesPracticed, name)
			}
		}
	}

	ended := 0
	for _, other := range d.sessions {
		if other.UserID == u.user.ID && !other.Active() {
			ended++
		}
	}
	date := now.Format(models.DueDateLayout)
	if ended == 1 {
		summary.Achievements = append(summary.Achievements, models.Achievement{Name: "First Session", Date: date})
	}
	if ended == 10 {
		summary.Achievements = append(summary.Achievements, models.Achievement{Name: "Ten Sessions", Date: date})
	}

	WriteJSON(w, http.StatusOK, summary)
}
