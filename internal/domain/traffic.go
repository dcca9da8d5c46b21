package domain

import "time"

// TrafficEvent is one captured request/response pair. Append-only; the JSON
// field names are part of the live-feed wire contract and the persisted
// record format.
type TrafficEvent struct {
	ID         uint      `gorm:"primaryKey" json:"-"`
	Timestamp  time.Time `gorm:"index;not null" json:"timestamp"`
	IP         string    `gorm:"size:64;not null" json:"ip"`
	Method     string    `gorm:"size:16;not null" json:"method"`
	Endpoint   string    `gorm:"size:512;not null" json:"endpoint"`
	StatusCode int       `gorm:"not null" json:"statusCode"`
}
