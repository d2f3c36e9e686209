package completion

import (
	"encoding/json"

	"github.com/sashabaranov/go-openai"
)

// UnknownModel is reported when a response does not name the model that served it.
const UnknownModel = "Unknown Model"

// Request is the JSON body posted to the completion endpoint.
type Request struct {
	Model       string                         `json:"model"`
	Messages    []openai.ChatCompletionMessage `json:"messages"`
	Temperature float32                        `json:"temperature"`
}

// NewUserRequest builds a request carrying a single user message.
func NewUserRequest(model string, temperature float32, prompt string) Request {
	return Request{
		Model: model,
		Messages: []openai.ChatCompletionMessage{{
			Role:    openai.ChatMessageRoleUser,
			Content: prompt,
		}},
		Temperature: temperature,
	}
}

// Response is a decoded completion body. Choices is nil when the body had no
// "choices" key and non-nil (possibly empty) otherwise.
type Response struct {
	Model   string
	Choices []Choice
}

// HasChoices reports whether the body carried a "choices" key.
func (r *Response) HasChoices() bool {
	return r.Choices != nil
}

// Choice is one candidate reply. OK is false when the element had no
// message.content string.
type Choice struct {
	Content string
	OK      bool
}

type wireResponse struct {
	Model   *string            `json:"model"`
	Choices *[]json.RawMessage `json:"choices"`
}

type wireChoice struct {
	Message *struct {
		Content *string `json:"content"`
	} `json:"message"`
}

func decodeResponse(body []byte) (*Response, error) {
	var wire wireResponse
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, err
	}

	resp := &Response{Model: UnknownModel}
	if wire.Model != nil {
		resp.Model = *wire.Model
	}

	if wire.Choices == nil {
		return resp, nil
	}

	resp.Choices = make([]Choice, 0, len(*wire.Choices))
	for _, raw := range *wire.Choices {
		var c wireChoice
		// A malformed element only invalidates itself.
		if err := json.Unmarshal(raw, &c); err != nil || c.Message == nil || c.Message.Content == nil {
			resp.Choices = append(resp.Choices, Choice{})
			continue
		}
		resp.Choices = append(resp.Choices, Choice{Content: *c.Message.Content, OK: true})
	}

	return resp, nil
}
