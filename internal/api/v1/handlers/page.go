package handlers

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/aigw/simplychat/internal/assets"
	"github.com/aigw/simplychat/internal/chat"
	"github.com/aigw/simplychat/internal/render"
	"github.com/aigw/simplychat/internal/services"
	"github.com/aigw/simplychat/internal/services/session"
)

const pageTitle = "AIGW Simply Chat"

//go:embed templates/chat.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/chat.html"))

type messageView struct {
	Role      chat.Role
	HTML      template.HTML
	AvatarURL string
}

type pageView struct {
	Title     string
	Messages  []messageView
	Notices   []chat.Notice
	Error     string
	Prompt    string
	MaxLength int
}

// PageRenderer turns a conversation into the chat page.
type PageRenderer struct {
	markdown *render.Markdown
	avatars  *assets.Avatars
}

func NewPageRenderer(avatars *assets.Avatars) *PageRenderer {
	return &PageRenderer{
		markdown: render.NewMarkdown(),
		avatars:  avatars,
	}
}

func (p *PageRenderer) view(conv *chat.Conversation, notices []chat.Notice) pageView {
	v := pageView{
		Title:     pageTitle,
		Notices:   notices,
		MaxLength: chat.MaxPromptLength,
	}
	for _, msg := range conv.Messages {
		mv := messageView{Role: msg.Role, HTML: p.markdown.HTML(msg.Content)}
		if p.avatars != nil && p.avatars.Has(msg.Role) {
			mv.AvatarURL = "/avatars/" + string(msg.Role) + ".png"
		}
		v.Messages = append(v.Messages, mv)
	}
	return v
}

func (p *PageRenderer) write(w http.ResponseWriter, code int, v pageView) {
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, v); err != nil {
		log.Error().Err(err).Msg("Failed to render chat page")
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write(buf.Bytes())
}

// HandlePage shows the conversation of the caller's session.
func HandlePage(svcs *services.Services, pages *PageRenderer, w http.ResponseWriter, r *http.Request) {
	sessions := svcs.GetSessionService()

	sessionID, err := sessions.Resolve(w, r)
	if err != nil {
		log.Error().Err(err).Msg("Failed to resolve session")
		http.Error(w, "Failed to start session", http.StatusInternalServerError)
		return
	}

	conv, err := sessions.Conversation(r.Context(), sessionID)
	if err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("Failed to load conversation")
		http.Error(w, "Failed to load conversation", http.StatusInternalServerError)
		return
	}

	pages.write(w, http.StatusOK, pages.view(conv, nil))
}

// HandlePageSubmit processes the chat form. An empty prompt re-renders the
// page unchanged.
func HandlePageSubmit(svcs *services.Services, pages *PageRenderer, w http.ResponseWriter, r *http.Request) {
	sessions := svcs.GetSessionService()

	sessionID, err := sessions.Resolve(w, r)
	if err != nil {
		log.Error().Err(err).Msg("Failed to resolve session")
		http.Error(w, "Failed to start session", http.StatusInternalServerError)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}
	prompt := r.PostFormValue("prompt")

	if prompt == "" {
		conv, err := sessions.Conversation(r.Context(), sessionID)
		if err != nil {
			log.Error().Err(err).Str("session_id", sessionID).Msg("Failed to load conversation")
			http.Error(w, "Failed to load conversation", http.StatusInternalServerError)
			return
		}
		pages.write(w, http.StatusOK, pages.view(conv, nil))
		return
	}

	conv, outcome, err := svcs.Submit(r.Context(), sessionID, prompt)
	if err != nil {
		code, msg := submitErrorStatus(err)
		if code == http.StatusInternalServerError {
			log.Error().Err(err).Str("session_id", sessionID).Msg("Failed to process submission")
		}

		current, loadErr := sessions.Conversation(r.Context(), sessionID)
		if loadErr != nil {
			http.Error(w, msg, code)
			return
		}

		v := pages.view(current, nil)
		v.Error = msg
		v.Prompt = prompt
		pages.write(w, code, v)
		return
	}

	pages.write(w, http.StatusOK, pages.view(conv, outcome.Notices))
}

// submitErrorStatus maps a Services.Submit error to a status and a message
// safe to show the user.
func submitErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, chat.ErrEmptyPrompt), errors.Is(err, chat.ErrPromptTooLong):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, session.ErrSubmitInProgress):
		return http.StatusConflict, err.Error()
	default:
		return http.StatusInternalServerError, "Failed to process submission"
	}
}
