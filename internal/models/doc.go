// Package models defines the data model shared by the oracle client, its local development API and the terminal UI.
//
// The package contains two categories of types:
//
// 1. API payloads: the shapes exchanged with the coaching API
//   - [User] : the signed-in account
//   - [UserStats] : dashboard totals for a user
//   - [TrainingSession] and [SessionSummary] : a training session and its closing report
//   - [ChatRequest], [ChatReply] and [ChatMessage] : coach conversation
//   - [Persona] : a coach personality
//   - [Technique], [ProgressEntry], [SkillProgress] and [VideoAnalysis] : training content
//
// 2. Local entities: data owned by the client and persisted in durable storage
//   - [Task] and [Subtask] : the training task board
//
// Types that accept user input implement [Validator].
package models
