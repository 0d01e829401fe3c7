package domain

import "time"

// Document is an uploaded document with its extracted text.
// The text may carry form-feed page separators inserted by the extractor.
type Document struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Content    string    `json:"content"`
	PageCount  int       `json:"page_count"`
	Status     string    `json:"status"`
	UploadedAt time.Time `json:"uploaded_at"`
}
