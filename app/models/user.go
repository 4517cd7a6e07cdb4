// Package models defines the records and request payloads of the API.
package models

import "time"

// User is keyed by the verified session subject.
type User struct {
	ID          string    `json:"id" db:"id"`
	Email       string    `json:"email,omitempty" db:"email"`
	Name        string    `json:"name,omitempty" db:"name"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	LastLoginAt time.Time `json:"lastLoginAt" db:"last_login_at"`
}
