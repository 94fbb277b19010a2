package models

import (
	"strings"
	"time"
)

// Role identifies who authored a turn.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// PartKind discriminates Part payloads.
type PartKind string

const (
	PartText  PartKind = "text"
	PartMedia PartKind = "media"
)

// Part is one ordered piece of a turn: either text or an opaque media reference.
type Part struct {
	Kind     PartKind `json:"kind"`
	Text     string   `json:"text,omitempty"`
	MediaRef string   `json:"media_ref,omitempty"`
}

// TextPart builds a text part.
func TextPart(s string) Part { return Part{Kind: PartText, Text: s} }

// MediaPart builds a media reference part.
func MediaPart(ref string) Part { return Part{Kind: PartMedia, MediaRef: ref} }

// Turn is one persisted message in a user's conversation.
// Turns are append-only; expiry is owned by the store.
type Turn struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	Role      Role      `json:"role" db:"role"`
	Parts     []Part    `json:"parts" db:"parts"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Text joins the turn's text parts with newlines.
func (t *Turn) Text() string {
	var texts []string
	for _, p := range t.Parts {
		if p.Kind == PartText && p.Text != "" {
			texts = append(texts, p.Text)
		}
	}
	return strings.Join(texts, "\n")
}

// MediaRefs returns the turn's media references in order.
func (t *Turn) MediaRefs() []string {
	var refs []string
	for _, p := range t.Parts {
		if p.Kind == PartMedia && p.MediaRef != "" {
			refs = append(refs, p.MediaRef)
		}
	}
	return refs
}
