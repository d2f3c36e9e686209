package chat

// Role identifies who authored a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message represents a single entry in a conversation. Messages are never
// modified after they are appended.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Conversation is the ordered message history of one session. Display order
// is insertion order.
type Conversation struct {
	Messages []Message `json:"messages"`
}

// Append adds msg to the end of the conversation.
func (c *Conversation) Append(msg Message) {
	c.Messages = append(c.Messages, msg)
}

func (c *Conversation) Len() int {
	return len(c.Messages)
}

// Count returns the number of messages authored by role.
func (c *Conversation) Count(role Role) int {
	n := 0
	for _, msg := range c.Messages {
		if msg.Role == role {
			n++
		}
	}
	return n
}

// Snapshot returns a copy of the messages safe to hand to renderers.
func (c *Conversation) Snapshot() []Message {
	out := make([]Message, len(c.Messages))
	copy(out, c.Messages)
	return out
}
