// internal/model/contact.go
package model

// Contact is one validated recipient: a syntactically valid email address
// plus an optional display name used for personalization.
type Contact struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}
