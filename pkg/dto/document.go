package dto

import "time"

// Artifact kinds.
const (
	KindText  = "text"
	KindCode  = "code"
	KindImage = "image"
	KindSheet = "sheet"
)

// DocumentRequest is the body of POST /api/document.
type DocumentRequest struct {
	Title   string `json:"title" validate:"required,max=255"`
	Kind    string `json:"kind" validate:"required,oneof=text code image sheet"`
	Content string `json:"content"`
}

// Document is one stored version of an artifact.
type Document struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Kind      string    `json:"kind"`
	UserID    string    `json:"userId"`
}

// Suggestion is an edit proposed for a document version.
type Suggestion struct {
	ID                string    `json:"id"`
	DocumentID        string    `json:"documentId"`
	DocumentCreatedAt time.Time `json:"documentCreatedAt"`
	OriginalText      string    `json:"originalText"`
	SuggestedText     string    `json:"suggestedText"`
	Description       string    `json:"description,omitempty"`
	IsResolved        bool      `json:"isResolved"`
	UserID            string    `json:"userId"`
	CreatedAt         time.Time `json:"createdAt"`
}

// UploadResponse is returned after a successful file upload.
type UploadResponse struct {
	URL         string `json:"url"`
	Pathname    string `json:"pathname"`
	ContentType string `json:"contentType"`
}
