package domain

// ConverseRequest is one turn sent to the dialogue engine.
type ConverseRequest struct {
	Query          string
	User           string // stable buyer identity on the engine side
	ConversationID string // empty starts a new conversation
	ImageURLs      []string
	Inputs         map[string]any
}

// ConverseResult is the engine's answer to one turn.
type ConverseResult struct {
	Answer         string
	ConversationID string
	MessageID      string
}

// Recognition is what the vision collaborators made of one image.
type Recognition struct {
	ImageURL    string
	ProductType string // classifier label, English
	RawModel    string // OCR text before correction
}
