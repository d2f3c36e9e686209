package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/aigw/simplychat/internal/chat"
	"github.com/aigw/simplychat/internal/services"
	"github.com/aigw/simplychat/pkg/httpext"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// SubmitRequest is the body of POST /v1/conversation/messages.
type SubmitRequest struct {
	Prompt string `json:"prompt" validate:"required,max=100"`
}

type ConversationResponse struct {
	Messages []chat.Message `json:"messages"`
}

type SubmitResponse struct {
	Messages []chat.Message `json:"messages"`
	Appended []chat.Message `json:"appended"`
	Notices  []chat.Notice  `json:"notices"`
}

// NewSubmitResponse flattens a conversation and outcome for the wire. Nil
// slices become empty arrays.
func NewSubmitResponse(conv *chat.Conversation, outcome *chat.Outcome) SubmitResponse {
	resp := SubmitResponse{
		Messages: conv.Snapshot(),
		Appended: outcome.Appended,
		Notices:  outcome.Notices,
	}
	if resp.Appended == nil {
		resp.Appended = []chat.Message{}
	}
	if resp.Notices == nil {
		resp.Notices = []chat.Notice{}
	}
	return resp
}

// ValidatePromptRequest checks req and returns a user facing description of
// the first failure.
func ValidatePromptRequest(req SubmitRequest) (string, bool) {
	if err := validate.Struct(req); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			switch verrs[0].Tag() {
			case "required":
				return chat.ErrEmptyPrompt.Error(), false
			case "max":
				return chat.ErrPromptTooLong.Error(), false
			}
		}
		return err.Error(), false
	}
	return "", true
}

// HandleGetConversation returns the caller's conversation.
func HandleGetConversation(svcs *services.Services, w http.ResponseWriter, r *http.Request) {
	sessions := svcs.GetSessionService()

	sessionID, err := sessions.Resolve(w, r)
	if err != nil {
		log.Error().Err(err).Msg("Failed to resolve session")
		httpext.JsonError(w, "Failed to start session", http.StatusInternalServerError)
		return
	}

	conv, err := sessions.Conversation(r.Context(), sessionID)
	if err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("Failed to load conversation")
		httpext.JsonError(w, "Failed to load conversation", http.StatusInternalServerError)
		return
	}

	httpext.WriteJSON(w, http.StatusOK, ConversationResponse{Messages: conv.Snapshot()})
}

// HandleSubmitMessage runs one submission. Endpoint failures still answer
// 200; they are reported through the notices.
func HandleSubmitMessage(svcs *services.Services, w http.ResponseWriter, r *http.Request) {
	sessionID, err := svcs.GetSessionService().Resolve(w, r)
	if err != nil {
		log.Error().Err(err).Msg("Failed to resolve session")
		httpext.JsonError(w, "Failed to start session", http.StatusInternalServerError)
		return
	}

	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Debug().Err(err).Msg("Failed to decode submit request")
		httpext.JsonError(w, "Invalid request format", http.StatusBadRequest)
		return
	}

	if reason, ok := ValidatePromptRequest(req); !ok {
		httpext.JsonErrorWithDetails(w, http.StatusBadRequest, httpext.ErrorResponse{
			Error:            "invalid_prompt",
			ErrorDescription: reason,
		})
		return
	}

	conv, outcome, err := svcs.Submit(r.Context(), sessionID, req.Prompt)
	if err != nil {
		code, msg := submitErrorStatus(err)
		if code == http.StatusInternalServerError {
			log.Error().Err(err).Str("session_id", sessionID).Msg("Failed to process submission")
		}
		httpext.JsonError(w, msg, code)
		return
	}

	httpext.WriteJSON(w, http.StatusOK, NewSubmitResponse(conv, outcome))
}
