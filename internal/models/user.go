package models

import "time"

type User struct {
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"` // empty means no reminder mail is sent
	CreatedAt time.Time `json:"created_at"`
}
