package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/desertthunder/oracle/internal/models"
)

// maxVideoBytes caps uploads to the dev API.
const maxVideoBytes = 100 << 20

var techniqueLibrary = []models.Technique{
	{ID: "jab", Name: "Jab", Category: "punches", Difficulty: "beginner", Description: "A straight punch with the lead hand. Snap it out and bring it straight back to guard."},
	{ID: "cross", Name: "Cross", Category: "punches", Difficulty: "beginner", Description: "A straight rear hand punch powered by hip and shoulder rotation."},
	{ID: "lead-hook", Name: "Lead Hook", Category: "punches", Difficulty: "intermediate", Description: "A short arcing punch with the lead hand, elbow level with the fist."},
	{ID: "uppercut", Name: "Uppercut", Category: "punches", Difficulty: "intermediate", Description: "A rising punch driven by the legs, aimed at the chin or body."},
	{ID: "slip", Name: "Slip", Category: "defense", Difficulty: "beginner", Description: "Move the head just off the center line to let a straight punch pass."},
	{ID: "roll", Name: "Roll", Category: "defense", Difficulty: "intermediate", Description: "Bend at the knees and roll under a hook, coming up on the other side."},
	{ID: "pivot", Name: "Pivot", Category: "footwork", Difficulty: "intermediate", Description: "Turn on the lead foot to change angles while staying in range."},
	{ID: "step-drag", Name: "Step and Drag", Category: "footwork", Difficulty: "beginner", Description: "Step with one foot and drag the other to keep the stance width."},
}

var timeframes = map[string]time.Duration{
	"7d":  7 * 24 * time.Hour,
	"30d": 30 * 24 * time.Hour,
	"90d": 90 * 24 * time.Hour,
}

func findTechnique(id string) (models.Technique, bool) {
	for _, t := range techniqueLibrary {
		if t.ID == id {
			return t, true
		}
	}
	return models.Technique{}, false
}

func (d *DevAPI) listTechniques(w http.ResponseWriter, r *http.Request, _ *devUser) {
	query := r.URL.Query()
	category := query.Get("category")
	difficulty := query.Get("difficulty")

	list := []models.Technique{}
	for _, t := range techniqueLibrary {
		if (category == "" || t.Category == category) && (difficulty == "" || t.Difficulty == difficulty) {
			list = append(list, t)
		}
	}
	WriteJSON(w, http.StatusOK, list)
}

func (d *DevAPI) getTechnique(w http.ResponseWriter, r *http.Request, _ *devUser) {
	t, ok := findTechnique(Var(r, "id"))
	if !ok {
		WriteError(w, http.StatusNotFound, "Technique not found")
		return
	}
	WriteJSON(w, http.StatusOK, t)
}

func (d *DevAPI) logPractice(w http.ResponseWriter, r *http.Request, u *devUser) {
	t, ok := findTechnique(Var(r, "id"))
	if !ok {
		WriteError(w, http.StatusNotFound, "Technique not found")
		return
	}

	var result models.PracticeResult
	if err := DecodeJSON(r, &result); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if result.Repetitions <= 0 {
		WriteError(w, http.StatusBadRequest, "repetitions must be positive")
		return
	}
	if result.Score < 0 || result.Score > 10 {
		WriteError(w, http.StatusBadRequest, "score must be between 0 and 10")
		return
	}

	d.mu.Lock()
	d.practice[u.user.ID] = append(d.practice[u.user.ID], practiceLog{techniqueID: t.ID, result: result, at: d.now().UTC()})
	d.mu.Unlock()

	WriteJSON(w, http.StatusCreated, ErrorBody{Message: "Practice logged"})
}

// listProgress accepts timeframe 7d, 30d, 90d or all.
func (d *DevAPI) listProgress(w http.ResponseWriter, r *http.Request, u *devUser) {
	timeframe := r.URL.Query().Get("timeframe")
	if timeframe == "" {
		timeframe = "30d"
	}
	window, ok := timeframes[timeframe]
	if !ok && timeframe != "all" {
		WriteError(w, http.StatusBadRequest, "Unknown timeframe "+timeframe)
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	since := d.now().Add(-window)
	entries := []models.ProgressEntry{}
	for _, e := range d.progress[u.user.ID] {
		if timeframe == "all" || !e.Recorded.Before(since) {
			entries = append(entries, e)
		}
	}
	WriteJSON(w, http.StatusOK, entries)
}

func (d *DevAPI) recordProgress(w http.ResponseWriter, r *http.Request, u *devUser) {
	var entry models.ProgressEntry
	if err := DecodeJSON(r, &entry); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	entry.Metric = strings.TrimSpace(entry.Metric)
	if entry.Metric == "" {
		WriteError(w, http.StatusBadRequest, "metric is required")
		return
	}
	entry.ID = uuid.New().String()
	if entry.Recorded.IsZero() {
		entry.Recorded = d.now().UTC()
	}

	d.mu.Lock()
	d.progress[u.user.ID] = append(d.progress[u.user.ID], entry)
	d.mu.Unlock()

	WriteJSON(w, http.StatusCreated, entry)
}

// skills averages practice scores per technique category. Categories never practiced score zero.
func (d *DevAPI) skills(w http.ResponseWriter, _ *http.Request, u *devUser) {
	var order []string
	sums := map[string]float64{}
	counts := map[string]int{}
	for _, t := range techniqueLibrary {
		if _, seen := sums[t.Category]; !seen {
			order = append(order, t.Category)
			sums[t.Category] = 0
		}
	}

	d.mu.Lock()
	for _, p := range d.practice[u.user.ID] {
		t, _ := findTechnique(p.techniqueID)
		sums[t.Category] += p.result.Score
		counts[t.Category]++
	}
	d.mu.Unlock()

	skills := make([]models.SkillProgress, 0, len(order))
	for _, category := range order {
		score := 0.0
		if counts[category] > 0 {
			score = sums[category] / float64(counts[category])
		}
		skills = append(skills, models.SkillProgress{Skill: category, Score: score})
	}
	WriteJSON(w, http.StatusOK, skills)
}

// uploadVideo accepts a multipart form with a "video" file and optional "metadata" JSON.
func (d *DevAPI) uploadVideo(w http.ResponseWriter, r *http.Request, u *devUser) {
	r.Body = http.MaxBytesReader(w, r.Body, maxVideoBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid upload")
		return
	}
	file, header, err := r.FormFile("video")
	if err != nil {
		WriteError(w, http.StatusBadRequest, "A video file is required")
		return
	}
	defer file.Close()

	metadata := map[string]any{}
	if raw := r.FormValue("metadata"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &metadata); err != nil {
			WriteError(w, http.StatusBadRequest, "metadata must be JSON")
			return
		}
	}

	id := "video_" + uuid.New().String()
	d.mu.Lock()
	d.videos[id] = devVideo{userID: u.user.ID, filename: header.Filename, size: header.Size, metadata: metadata, uploaded: d.now().UTC()}
	d.mu.Unlock()

	d.logger.Info("video uploaded", "id", id, "file", header.Filename, "bytes", header.Size)
	WriteJSON(w, http.StatusCreated, models.VideoUpload{ID: id, Status: "processing"})
}

func (d *DevAPI) video(w http.ResponseWriter, r *http.Request, u *devUser) (string, devVideo, bool) {
	id := Var(r, "id")
	d.mu.Lock()
	v, ok := d.videos[id]
	d.mu.Unlock()
	if !ok || v.userID != u.user.ID {
		WriteError(w, http.StatusNotFound, "Video not found")
		return "", v, false
	}
	return id, v, true
}

func (d *DevAPI) videoAnalysis(w http.ResponseWriter, r *http.Request, u *devUser) {
	id, v, ok := d.video(w, r, u)
	if !ok {
		return
	}
	WriteJSON(w, http.StatusOK, models.VideoAnalysis{
		VideoID: id,
		Status:  "completed",
		Summary: fmt.Sprintf("Analyzed %s (%d bytes): stance and guard detected throughout.", v.filename, v.size),
	})
}

func (d *DevAPI) videoFeedback(w http.ResponseWriter, r *http.Request, u *devUser) {
	id, _, ok := d.video(w, r, u)
	if !ok {
		return
	}
	WriteJSON(w, http.StatusOK, models.VideoAnalysis{
		VideoID: id,
		Status:  "completed",
		Feedback: []string{
			"Keep your rear hand at your chin when jabbing.",
			"Return punches along the same line they were thrown.",
			"Stay on the balls of your feet between combinations.",
		},
	})
}
