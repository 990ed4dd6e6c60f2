package model

import (
	"time"

	"github.com/google/uuid"
)

// Operator is an account allowed to manage tests.
type Operator struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	ChatID       string    `json:"chat_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// OperatorLoginRequest is the payload for operator login.
type OperatorLoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}
