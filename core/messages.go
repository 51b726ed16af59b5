package core

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is one entry of conversation context as exchanged with the
// language model and carried in chat requests.
type Message struct {
	Role    Role   `json:"role"`    // Role of the message sender (user, assistant, system).
	Content string `json:"content"` // Content of the message.
}

// ConversationTurn is one displayed entry in the client transcript.
// Assistant turns carry the synthesized audio alongside the text.
// Turns are immutable once appended.
type ConversationTurn struct {
	Role     Role
	Content  string
	Audio    []byte // nil for user turns and audio-less assistant turns
	MimeType string // set when Audio is present, e.g. "audio/mpeg"
}
