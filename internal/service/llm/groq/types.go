package groq

// ChatMessage is one chat message. Parts, when set, make a multimodal
// user message and Text is ignored.
type ChatMessage struct {
	Role  string
	Text  string
	Parts []ContentPart
}

// ContentPart is one element of a multimodal message: text or an image URL
// (http(s) or data: URI).
type ContentPart struct {
	Text     string
	ImageURL string
}

// ChatRequest is one chat completion call.
type ChatRequest struct {
	Model     string
	Messages  []ChatMessage
	MaxTokens int
}

// TranscriptionRequest is an audio/transcriptions upload.
type TranscriptionRequest struct {
	Model    string
	Filename string
	Audio    []byte
}
