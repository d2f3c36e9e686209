package chat

// NoticeLevel classifies a notice for display.
type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeWarning NoticeLevel = "warning"
	NoticeError   NoticeLevel = "error"
)

// Notice is a transient report produced by a submission. Notices are shown to
// the user but never become part of the conversation.
type Notice struct {
	Level NoticeLevel `json:"level"`
	Text  string      `json:"text"`
}

// Outcome describes what a single submission did.
type Outcome struct {
	// Appended holds the messages added to the conversation, user prompt first.
	Appended []Message `json:"appended"`
	Notices  []Notice  `json:"notices"`
}

// HasErrors reports whether any error-level notice was produced.
func (o *Outcome) HasErrors() bool {
	for _, n := range o.Notices {
		if n.Level == NoticeError {
			return true
		}
	}
	return false
}

func (o *Outcome) notify(level NoticeLevel, text string) {
	o.Notices = append(o.Notices, Notice{Level: level, Text: text})
}
