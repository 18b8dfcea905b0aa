package core

import "github.com/google/uuid"

// Message is a single role-tagged entry in a conversation history.
// Role is one of "system", "user" or "assistant".
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Document is a retrieved context item together with the relevance score
// assigned by the retrieval collaborator. Higher scores rank earlier.
type Document struct {
	ID      string  `json:"id"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// NewID returns a new globally unique identifier (UUID v4 string).
func NewID() string { return uuid.NewString() }
