package handlers

import (
	"net/http"

	"github.com/bookx-exchange/apiserver/internal/services"
	"github.com/go-chi/chi/v5"
)

// MessageHandler provides HTTP handlers for private messages.
type MessageHandler struct {
	messageService *services.MessageService
}

func NewMessageHandler(messageService *services.MessageService) *MessageHandler {
	return &MessageHandler{messageService: messageService}
}

// MessageRouter registers message routes on the given router.
func MessageRouter(r chi.Router, messageService *services.MessageService, authMiddleware func(http.Handler) http.Handler) {
	handler := NewMessageHandler(messageService)

	r.Use(authMiddleware)
	r.Post("/", handler.SendMessage)
	r.Get("/user/{userID}", handler.UserMessages)
	r.Get("/books/{bookID}/thread", handler.BookThread)
	r.Get("/{messageID}", handler.GetMessage)
	r.Delete("/{messageID}", handler.DeleteMessage)
}

func (h *MessageHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req MessageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	msg, err := h.messageService.Send(r.Context(), user, services.MessageDraft{
		BookID:          req.BookID,
		Content:         req.Content,
		ParentMessageID: req.ParentMessageID,
		RecipientID:     req.RecipientID,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

func (h *MessageHandler) UserMessages(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	userID, err := parseIDParam(r, "userID", "user")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	messages, err := h.messageService.ForUser(r.Context(), user, userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messages)
}

func (h *MessageHandler) BookThread(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	bookID, err := parseIDParam(r, "bookID", "book")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	threads, err := h.messageService.Thread(r.Context(), user, bookID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, threads)
}

func (h *MessageHandler) GetMessage(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	id, err := parseIDParam(r, "messageID", "message")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	msg, err := h.messageService.Get(r.Context(), user, id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

func (h *MessageHandler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	id, err := parseIDParam(r, "messageID", "message")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.messageService.Delete(r.Context(), user, id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MessageRequest is the payload for sending a message. bookId may be
// omitted on replies.
type MessageRequest struct {
	BookID          int    `json:"bookId" validate:"gte=0"`
	Content         string `json:"content" validate:"required,max=5000"`
	ParentMessageID *int   `json:"parentMessageId" validate:"omitempty,gte=1"`
	RecipientID     *int   `json:"recipientId" validate:"omitempty,gte=1"`
}
