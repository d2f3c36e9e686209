package handlers

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/aigw/simplychat/internal/chat"
	"github.com/aigw/simplychat/internal/services"
)

// HandleAvatar serves the image loaded at startup for the {role} path
// variable.
func HandleAvatar(svcs *services.Services, w http.ResponseWriter, r *http.Request) {
	role := chat.Role(mux.Vars(r)["role"])

	img, ok := svcs.GetAvatars().Get(role)
	if !ok {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", img.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(img.Data)))
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write(img.Data)
}

func HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
