// Package chat holds the conversation model and the controller that drives a
// submission through the completion endpoint.
package chat

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"github.com/aigw/simplychat/internal/infrastructure/completion"
)

// MaxPromptLength is the longest accepted prompt, in characters.
const MaxPromptLength = 100

var (
	ErrEmptyPrompt   = errors.New("prompt must not be empty")
	ErrPromptTooLong = fmt.Errorf("prompt must be at most %d characters", MaxPromptLength)
)

const (
	choicesMissingWarning = "Invalid format in API response: 'choices' not found."
	contentMissingWarning = "Invalid format in API response: 'message' or 'content' not found."
)

// Completer sends a request to the completion endpoint.
type Completer interface {
	Complete(ctx context.Context, req completion.Request) (*completion.Response, error)
}

// Settings are the static parts of every request plus the greeting that seeds
// new conversations.
type Settings struct {
	Model       string
	Temperature float32
	Greeting    string
}

type Controller struct {
	settings  Settings
	completer Completer
}

func NewController(settings Settings, completer Completer) *Controller {
	return &Controller{
		settings:  settings,
		completer: completer,
	}
}

// Initialize seeds an empty conversation with the assistant greeting. It does
// nothing when the conversation already has messages.
func (c *Controller) Initialize(conv *Conversation) {
	if conv == nil || conv.Len() > 0 {
		return
	}
	conv.Append(Message{Role: RoleAssistant, Content: c.settings.Greeting})
}

// ValidatePrompt checks the prompt length limits.
func ValidatePrompt(prompt string) error {
	if prompt == "" {
		return ErrEmptyPrompt
	}
	if utf8.RuneCountInString(prompt) > MaxPromptLength {
		return ErrPromptTooLong
	}
	return nil
}

// Submit appends the prompt to conv, sends it to the completion endpoint once
// and appends every valid choice as an assistant message. Endpoint failures
// are reported as notices in the outcome; the returned error is reserved for
// an invalid prompt, in which case conv is left untouched.
func (c *Controller) Submit(ctx context.Context, conv *Conversation, prompt string) (*Outcome, error) {
	if err := ValidatePrompt(prompt); err != nil {
		return nil, err
	}

	userMsg := Message{Role: RoleUser, Content: prompt}
	conv.Append(userMsg)
	outcome := &Outcome{Appended: []Message{userMsg}}

	// Only the newest user message is sent; earlier turns stay local.
	req := completion.NewUserRequest(c.settings.Model, c.settings.Temperature, prompt)

	resp, err := c.completer.Complete(ctx, req)
	if err != nil {
		var statusErr *completion.StatusError
		if errors.As(err, &statusErr) {
			log.Warn().Int("status", statusErr.Code).Msg("Completion endpoint returned an error status")
			outcome.notify(NoticeError, fmt.Sprintf("Unfortunately, I don't quite like your question. Please try again. My mood: %d", statusErr.Code))
			return outcome, nil
		}

		log.Error().Err(err).Msg("Failed to reach completion endpoint")
		outcome.notify(NoticeError, fmt.Sprintf("Error sending request: %v", err))
		return outcome, nil
	}

	if !resp.HasChoices() {
		log.Warn().Str("model", resp.Model).Msg("Completion response has no choices")
		outcome.notify(NoticeWarning, choicesMissingWarning)
		return outcome, nil
	}

	for i, choice := range resp.Choices {
		if !choice.OK {
			log.Warn().Int("choice", i).Msg("Completion choice has no message content")
			outcome.notify(NoticeWarning, contentMissingWarning)
			continue
		}

		msg := Message{Role: RoleAssistant, Content: choice.Content}
		conv.Append(msg)
		outcome.Appended = append(outcome.Appended, msg)
		outcome.notify(NoticeInfo, "LLM Model Used: "+resp.Model)
	}

	log.Info().
		Str("model", resp.Model).
		Int("choices", len(resp.Choices)).
		Int("appended", len(outcome.Appended)-1).
		Int("assistant_messages", conv.Count(RoleAssistant)).
		Msg("Submission processed")

	return outcome, nil
}
