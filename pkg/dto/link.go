package dto

import "time"

// CreateLinkRequest is the body of POST /links.
type CreateLinkRequest struct {
	Title       string `json:"title" validate:"required,max=255"`
	URL         string `json:"url" validate:"required,url"`
	Description string `json:"description" validate:"max=2000"`
}

// UpdateLinkRequest is the partial form of CreateLinkRequest: nil fields are
// left untouched.
type UpdateLinkRequest struct {
	Title       *string `json:"title,omitempty" validate:"omitempty,min=1,max=255"`
	URL         *string `json:"url,omitempty" validate:"omitempty,url"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=2000"`
}

// Empty reports whether the update carries no field.
func (r UpdateLinkRequest) Empty() bool {
	return r.Title == nil && r.URL == nil && r.Description == nil
}

// Link is the wire form of a link.
type Link struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
