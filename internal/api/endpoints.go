package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/desertthunder/oracle/internal/models"
)

// Profile fetches the signed-in user's profile.
func (c *Client) Profile(ctx context.Context) (*models.User, error) {
	var user models.User
	if err := c.getJSON(ctx, "/user/profile", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateProfile saves profile changes and returns the updated user.
func (c *Client) UpdateProfile(ctx context.Context, update models.ProfileUpdate) (*models.User, error) {
	var user models.User
	if err := c.sendJSON(ctx, http.MethodPut, "/user/profile", update, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UserStats fetches dashboard totals for userID.
func (c *Client) UserStats(ctx context.Context, userID string) (*models.UserStats, error) {
	var stats models.UserStats
	if err := c.getJSON(ctx, "/user/"+url.PathEscape(userID)+"/stats", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// RecentSessions fetches the latest training sessions of userID. limit <= 0 means 5.
func (c *Client) RecentSessions(ctx context.Context, userID string, limit int) ([]models.TrainingSession, error) {
	if limit <= 0 {
		limit = 5
	}

	var sessions []models.TrainingSession
	params := url.Values{"limit": {strconv.Itoa(limit)}}
	if err := c.getJSON(ctx, "/user/"+url.PathEscape(userID)+"/sessions/recent", params, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// StartSession starts a training session.
func (c *Client) StartSession(ctx context.Context, req models.SessionRequest) (*models.TrainingSession, error) {
	var session models.TrainingSession
	if err := c.sendJSON(ctx, http.MethodPost, "/training/sessions", req, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// EndSession ends a training session with optional results.
func (c *Client) EndSession(ctx context.Context, sessionID string, results map[string]any) (*models.SessionSummary, error) {
	var summary models.SessionSummary
	if err := c.sendJSON(ctx, http.MethodPut, "/training/sessions/"+url.PathEscape(sessionID)+"/end", results, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

// Session fetches one training session.
func (c *Client) Session(ctx context.Context, sessionID string) (*models.TrainingSession, error) {
	var session models.TrainingSession
	if err := c.getJSON(ctx, "/training/sessions/"+url.PathEscape(sessionID), nil, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// Sessions lists training sessions matching filters.
func (c *Client) Sessions(ctx context.Context, filters url.Values) ([]models.TrainingSession, error) {
	var sessions []models.TrainingSession
	if err := c.getJSON(ctx, "/training/sessions", filters, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// SendMessage sends message to the coach. An empty coach selects [models.DefaultCoach].
func (c *Client) SendMessage(ctx context.Context, message, sessionID, coach string) (*models.ChatReply, error) {
	if coach == "" {
		coach = models.DefaultCoach
	}

	payload := models.ChatRequest{
		Message:   message,
		CoachType: coach,
		SessionID: sessionID,
		Timestamp: time.Now().UTC(),
	}

	var reply models.ChatReply
	if err := c.sendJSON(ctx, http.MethodPost, "/chat/message", payload, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

// ChatHistory fetches past messages, optionally for one session. limit <= 0 means 50.
func (c *Client) ChatHistory(ctx context.Context, sessionID string, limit int) ([]models.ChatMessage, error) {
	if limit <= 0 {
		limit = 50
	}

	params := url.Values{"limit": {strconv.Itoa(limit)}}
	if sessionID != "" {
		params.Set("session_id", sessionID)
	}

	var messages []models.ChatMessage
	if err := c.getJSON(ctx, "/chat/history", params, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// Personas lists the available coach personas.
func (c *Client) Personas(ctx context.Context) ([]models.Persona, error) {
	var personas []models.Persona
	if err := c.getJSON(ctx, "/chat/personas", nil, &personas); err != nil {
		return nil, err
	}
	return personas, nil
}

// Tasks lists tasks stored on the server.
func (c *Client) Tasks(ctx context.Context, filters url.Values) ([]models.Task, error) {
	var tasks []models.Task
	if err := c.getJSON(ctx, "/tasks", filters, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// CreateTask stores a new task on the server.
func (c *Client) CreateTask(ctx context.Context, task models.Task) (*models.Task, error) {
	var created models.Task
	if err := c.sendJSON(ctx, http.MethodPost, "/tasks", task, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateTask replaces a task on the server.
func (c *Client) UpdateTask(ctx context.Context, task models.Task) (*models.Task, error) {
	var updated models.Task
	if err := c.sendJSON(ctx, http.MethodPut, "/tasks/"+url.PathEscape(task.ID), task, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteTask removes a task from the server.
func (c *Client) DeleteTask(ctx context.Context, taskID string) error {
	_, err := c.Delete(ctx, "/tasks/"+url.PathEscape(taskID))
	return err
}

// CompleteTask marks a task completed with optional results.
func (c *Client) CompleteTask(ctx context.Context, taskID string, results map[string]any) (*models.Task, error) {
	var task models.Task
	if err := c.sendJSON(ctx, http.MethodPatch, "/tasks/"+url.PathEscape(taskID)+"/complete", results, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// Techniques lists techniques, optionally filtered by category and difficulty.
func (c *Client) Techniques(ctx context.Context, category, difficulty string) ([]models.Technique, error) {
	params := url.Values{}
	if category != "" {
		params.Set("category", category)
	}
	if difficulty != "" {
		params.Set("difficulty", difficulty)
	}

	var techniques []models.Technique
	if err := c.getJSON(ctx, "/techniques", params, &techniques); err != nil {
		return nil, err
	}
	return techniques, nil
}

// Technique fetches one technique.
func (c *Client) Technique(ctx context.Context, techniqueID string) (*models.Technique, error) {
	var technique models.Technique
	if err := c.getJSON(ctx, "/techniques/"+url.PathEscape(techniqueID), nil, &technique); err != nil {
		return nil, err
	}
	return &technique, nil
}

// LogPractice records a practice run of a technique.
func (c *Client) LogPractice(ctx context.Context, techniqueID string, result models.PracticeResult) error {
	return c.sendJSON(ctx, http.MethodPost, "/techniques/"+url.PathEscape(techniqueID)+"/practice", result, nil)
}

// Progress fetches progress data for timeframe. An empty timeframe means "30d".
func (c *Client) Progress(ctx context.Context, timeframe string) ([]models.ProgressEntry, error) {
	if timeframe == "" {
		timeframe = "30d"
	}

	var entries []models.ProgressEntry
	if err := c.getJSON(ctx, "/progress", url.Values{"timeframe": {timeframe}}, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// SkillAssessment fetches current skill scores.
func (c *Client) SkillAssessment(ctx context.Context) ([]models.SkillProgress, error) {
	var skills []models.SkillProgress
	if err := c.getJSON(ctx, "/progress/skills", nil, &skills); err != nil {
		return nil, err
	}
	return skills, nil
}

// RecordProgress stores a progress data point.
func (c *Client) RecordProgress(ctx context.Context, entry models.ProgressEntry) error {
	return c.sendJSON(ctx, http.MethodPost, "/progress", entry, nil)
}

// VideoAnalysis fetches the analysis of an uploaded video.
func (c *Client) VideoAnalysis(ctx context.Context, videoID string) (*models.VideoAnalysis, error) {
	var analysis models.VideoAnalysis
	if err := c.getJSON(ctx, "/video/"+url.PathEscape(videoID)+"/analysis", nil, &analysis); err != nil {
		return nil, err
	}
	return &analysis, nil
}

// VideoFeedback fetches coach feedback for an uploaded video.
func (c *Client) VideoFeedback(ctx context.Context, videoID string) (*models.VideoAnalysis, error) {
	var feedback models.VideoAnalysis
	if err := c.getJSON(ctx, "/video/"+url.PathEscape(videoID)+"/feedback", nil, &feedback); err != nil {
		return nil, err
	}
	return &feedback, nil
}

// Health checks the API. Failures are reported through the returned error.
func (c *Client) Health(ctx context.Context) (*models.HealthStatus, error) {
	var status models.HealthStatus
	if err := c.getJSON(ctx, "/health", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}
