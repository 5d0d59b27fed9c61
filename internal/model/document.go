package model

import "time"

// Document is a published file offered for sale at a fixed satoshi price.
// This is a pure domain model with no database-specific dependencies or tags.
type Document struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Cost         int64     `json:"cost"`
	OwnerAddress string    `json:"address_owner"`
	ContentHash  string    `json:"hash"`
	MimeType     string    `json:"mime_type"`
	Size         int64     `json:"file_size"`
	StoragePath  string    `json:"path"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
