package domain

// Message is one rendered line handed to the messaging transport.
type Message struct {
	ID        string `json:"id"`
	SessionID string `json:"session_id"`
	ScriptID  string `json:"script_id"`
	Thread    string `json:"thread"`
	LineIndex int    `json:"line_index"`

	Text    string `json:"text,omitempty"`
	Payload any    `json:"payload,omitempty"`

	// Prompt is true when the engine suspends after this message awaiting a reply.
	Prompt bool `json:"prompt,omitempty"`
}

// Empty reports whether there is nothing to send.
func (m Message) Empty() bool {
	return m.Text == "" && m.Payload == nil
}
