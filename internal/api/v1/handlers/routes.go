package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	v1ws "github.com/aigw/simplychat/internal/api/v1/handlers/websocket"
	v1mware "github.com/aigw/simplychat/internal/api/v1/middleware"
	"github.com/aigw/simplychat/internal/connections"
	"github.com/aigw/simplychat/internal/services"
)

// RegisterRoutes mounts the chat page, the JSON API and the websocket on
// router.
func RegisterRoutes(router *mux.Router, services *services.Services, manager *connections.Manager) {
	pages := NewPageRenderer(services.GetAvatars())
	submitLimit := v1mware.RateLimit("submit", services.GetConfig().RateLimit, services.GetSubmitLimiter())

	router.HandleFunc("/health", HandleHealth).Methods("GET")

	router.HandleFunc("/avatars/{role}.png", func(w http.ResponseWriter, r *http.Request) {
		HandleAvatar(services, w, r)
	}).Methods("GET")

	// Chat page
	router.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		HandlePage(services, pages, w, r)
	}).Methods("GET")
	router.Handle("/", submitLimit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		HandlePageSubmit(services, pages, w, r)
	}))).Methods("POST")

	// v1 routes
	v1 := router.PathPrefix("/v1").Subrouter()

	v1.HandleFunc("/conversation", func(w http.ResponseWriter, r *http.Request) {
		HandleGetConversation(services, w, r)
	}).Methods("GET")
	v1.Handle("/conversation/messages", submitLimit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		HandleSubmitMessage(services, w, r)
	}))).Methods("POST")

	v1.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		v1ws.HandleChatWebSocket(services, manager, w, r)
	}).Methods("GET")
}
