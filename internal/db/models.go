package db

import (
	"database/sql"
	"time"
)

type User struct {
	ID           int64          `json:"id"`
	Username     string         `json:"username"`
	Email        string         `json:"email"`
	PasswordHash string         `json:"-"`
	RoleID       string         `json:"role_id"`
	ImagePath    sql.NullString `json:"-"`
	CreatedAt    time.Time      `json:"created_at"`
}

func (u User) IsAdmin() bool {
	return u.RoleID == "admin"
}

type FaceVerification struct {
	ID            int64     `json:"id"`
	UserID        int64     `json:"user_id"`
	Verified      bool      `json:"verified"`
	Distance      float64   `json:"distance"`
	Threshold     float64   `json:"threshold"`
	Profile       string    `json:"model_profile"`
	FailureReason string    `json:"failure_reason,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}
