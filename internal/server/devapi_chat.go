package server

import (
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/desertthunder/oracle/internal/models"
)

var personas = []models.Persona{
	{Name: "Technical Master", Description: "Breaks down form, footwork and combinations."},
	{Name: "Motivational Coach", Description: "Keeps you showing up and pushing through."},
	{Name: "Safety Expert", Description: "Covers injury prevention, recovery and protective gear."},
	{Name: "Performance Analyst", Description: "Reads your numbers and plans the next block."},
}

// topics maps message keywords to a canned reply. The first match wins.
var topics = []struct {
	keywords []string
	reply    string
}{
	{[]string{"jab", "cross", "hook", "uppercut", "combo", "combination"},
		"Start from your **stance**. Keep the rear hand at your chin and snap the punch back faster than you threw it.\n\n1. Shadow box the combination slowly for one round\n2. Add speed on the bag for two rounds\n3. Finish with one round focusing only on the return"},
	{[]string{"defense", "defence", "slip", "block", "guard"},
		"Defense starts with your **eyes**. Keep your chin tucked and move your head off the center line.\n\n- Slip the jab to the outside\n- Roll under hooks\n- Reset your guard after every exchange"},
	{[]string{"tired", "motivation", "motivated", "quit", "lazy"},
		"Every champion has days like this. Commit to **one round**. Most days, one round becomes a full session."},
	{[]string{"injury", "pain", "hurt", "wrist", "shoulder"},
		"Stop any drill that causes sharp pain. Wrap your hands every session and build up bag work gradually. If the pain persists, see a medical professional."},
	{[]string{"cardio", "conditioning", "stamina", "endurance"},
		"Build your engine with intervals: **3 minute rounds** with 1 minute rest. Add skipping rope between rounds to keep your feet light."},
}

var suggestions = []string{"Show me a drill", "How do I improve my defense?", "Plan my next session"}

func coachReply(coach, message string) string {
	lower := strings.ToLower(message)
	for _, t := range topics {
		for _, k := range t.keywords {
			if strings.Contains(lower, k) {
				return t.reply
			}
		}
	}
	return "Good question. As your " + coach + ", I suggest we start with the fundamentals: stance, guard and footwork. Tell me what you trained last and we can build from there."
}

func (d *DevAPI) chatMessage(w http.ResponseWriter, r *http.Request, u *devUser) {
	var req models.ChatRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		WriteError(w, http.StatusBadRequest, "Message is required")
		return
	}
	if req.CoachType == "" {
		req.CoachType = models.DefaultCoach
	}
	if !slices.Contains(models.DefaultCoaches, req.CoachType) {
		WriteError(w, http.StatusBadRequest, "Unknown coach "+strconv.Quote(req.CoachType))
		return
	}

	start := d.now()
	reply := models.ChatReply{
		Message:     coachReply(req.CoachType, req.Message),
		Coach:       req.CoachType,
		Suggestions: suggestions,
	}
	now := d.now().UTC()
	reply.ResponseTime = now.Sub(start).Seconds()

	d.mu.Lock()
	d.messages[u.user.ID] = append(d.messages[u.user.ID],
		models.ChatMessage{
			ID:        uuid.New().String(),
			Sender:    models.SenderUser,
			Content:   req.Message,
			SessionID: req.SessionID,
			Timestamp: now,
		},
		models.ChatMessage{
			ID:          uuid.New().String(),
			Sender:      models.SenderAI,
			Content:     reply.Message,
			Coach:       reply.Coach,
			Suggestions: reply.Suggestions,
			SessionID:   req.SessionID,
			Timestamp:   now,
		},
	)
	d.mu.Unlock()

	WriteJSON(w, http.StatusOK, reply)
}

// chatHistory returns the latest messages in chronological order.
func (d *DevAPI) chatHistory(w http.ResponseWriter, r *http.Request, u *devUser) {
	query := r.URL.Query()
	limit := 50
	if raw := query.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			WriteError(w, http.StatusBadRequest, "limit must be a positive number")
			return
		}
		limit = n
	}
	sessionID := query.Get("session_id")

	d.mu.Lock()
	history := []models.ChatMessage{}
	for _, m := range d.messages[u.user.ID] {
		if sessionID == "" || m.SessionID == sessionID {
			history = append(history, m)
		}
	}
	d.mu.Unlock()

	if len(history) > limit {
		history = history[len(history)-limit:]
	}
	WriteJSON(w, http.StatusOK, history)
}

func (d *DevAPI) personas(w http.ResponseWriter, _ *http.Request, _ *devUser) {
	WriteJSON(w, http.StatusOK, personas)
}
