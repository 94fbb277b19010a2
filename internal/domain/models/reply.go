package models

// FlagGrudge marks a user the bot is holding a grudge against.
const FlagGrudge = "grudge"

// Image is a normalized image ready to attach to a generation request.
type Image struct {
	Data     []byte
	MIMEType string
}

// Override replaces the user's message with a synthetic directive.
// Instruction is trusted; Input is user-derived and gets sanitized.
type Override struct {
	Instruction string `json:"instruction"`
	Input       string `json:"input,omitempty"`
}

// GenerationResult is the post-processed reply handed to delivery.
type GenerationResult struct {
	DisplayText    string `json:"display_text"`
	MediaReference string `json:"media_reference,omitempty"`
	Backend        string `json:"backend"`
	Degraded       bool   `json:"degraded,omitempty"`
}

// HasMedia reports whether a media reference was resolved.
func (r GenerationResult) HasMedia() bool { return r.MediaReference != "" }
