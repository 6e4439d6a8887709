package models

import "time"

// DefaultCoach is the persona used when none is selected.
const DefaultCoach = "Technical Master"

// Message senders.
const (
	SenderUser = "user"
	SenderAI   = "ai"
)

// DefaultCoaches lists the built-in coach personas, in display order.
var DefaultCoaches = []string{
	"Technical Master",
	"Motivational Coach",
	"Safety Expert",
	"Performance Analyst",
}

// ChatRequest is the payload of the chat message endpoint.
type ChatRequest struct {
	Message   string    `json:"message"`
	CoachType string    `json:"coach_type"`
	SessionID string    `json:"session_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ChatReply is the coach's answer to a [ChatRequest].
type ChatReply struct {
	Message      string   `json:"message"`
	Coach        string   `json:"coach,omitempty"`
	Suggestions  []string `json:"suggestions,omitempty"`
	ResponseTime float64  `json:"response_time,omitempty"`
}

// ChatMessage is one line of a conversation.
type ChatMessage struct {
	ID          string    `json:"id"`
	Sender      string    `json:"sender"`
	Content     string    `json:"content"`
	Coach       string    `json:"coach,omitempty"`
	Suggestions []string  `json:"suggestions,omitempty"`
	SessionID   string    `json:"session_id,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// Persona describes a coach personality.
type Persona struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}
