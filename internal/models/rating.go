package models

import "time"

type Rating struct {
	ID           int64     `json:"id"`
	SessionID    int64     `json:"session_id"`
	ConsultantID int64     `json:"consultant_id"`
	ClientID     int64     `json:"client_id"`
	Score        int       `json:"score"`
	Feedback     *string   `json:"feedback"`
	CreatedAt    time.Time `json:"created_at"`
}
