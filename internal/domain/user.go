package domain

import "time"

// User is a staff member who creates, works and is assigned tickets.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
