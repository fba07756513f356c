package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"pairchat/auth"
	"pairchat/services"
)

// MessageHandler is the REST counterpart of the websocket intents. Both
// surfaces share the same service, so events flow identically.
type MessageHandler struct {
	messageService services.IMessageService
}

func NewMessageHandler(messageService services.IMessageService) *MessageHandler {
	return &MessageHandler{messageService: messageService}
}

func (h *MessageHandler) RegisterRoutes(r chi.Router) {
	r.Post("/messages", h.handleSend)
	r.Get("/messages/{userID}", h.handleHistory)
	r.Post("/messages/mark-read", h.handleMarkRead)
	r.Post("/messages/{messageID}/reactions", h.handleToggleReaction)
}

type sendMessageRequest struct {
	RecipientID string `json:"recipientId"`
	Content     string `json:"content"`
}

type markReadRequest struct {
	OtherUserID string `json:"otherUserId"`
}

type toggleReactionRequest struct {
	Emoji string `json:"emoji"`
}

func (h *MessageHandler) handleSend(w http.ResponseWriter, r *http.Request) {
	senderID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "missing identity")
		return
	}

	var payload sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	message, err := h.messageService.Send(senderID, payload.RecipientID, payload.Content)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, message)
}

func (h *MessageHandler) handleHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "missing identity")
		return
	}
	otherID := chi.URLParam(r, "userID")

	messages, err := h.messageService.History(userID, otherID)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, messages)
}

func (h *MessageHandler) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	readerID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "missing identity")
		return
	}

	var payload markReadRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ids, err := h.messageService.MarkRead(readerID, payload.OtherUserID)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"messageIds": ids})
}

func (h *MessageHandler) handleToggleReaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "missing identity")
		return
	}

	messageID, err := uuid.Parse(chi.URLParam(r, "messageID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid message id")
		return
	}

	var payload toggleReactionRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	message, err := h.messageService.ToggleReaction(messageID, userID, payload.Emoji)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, message)
}
