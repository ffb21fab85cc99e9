package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dkovacev/chatter/internal/domain"
	"github.com/dkovacev/chatter/internal/service"
	"github.com/dkovacev/chatter/internal/transport/http/middleware"
	"github.com/dkovacev/chatter/pkg/validator"
)

type MessageHandler struct {
	msgService *service.MessageService
	logger     zerolog.Logger
}

func NewMessageHandler(msgService *service.MessageService, logger zerolog.Logger) *MessageHandler {
	return &MessageHandler{msgService: msgService, logger: logger}
}

func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	caller := middleware.GetPhoneID(r.Context())

	var input struct {
		To   string             `json:"to"`
		Text string             `json:"text"`
		Type domain.MessageType `json:"type,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	if errs := validator.ValidateSendMessage(input.To, input.Text); errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}

	result, err := h.msgService.Send(r.Context(), caller, input.To, input.Text, input.Type)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyMessage):
			writeError(w, http.StatusBadRequest, "MISSING_TEXT", "Message text is required")
		case errors.Is(err, service.ErrInvalidMessageType):
			writeError(w, http.StatusBadRequest, "INVALID_TYPE", "Invalid message type")
		case errors.Is(err, service.ErrInvalidParticipant):
			writeError(w, http.StatusBadRequest, "INVALID_PARTICIPANT", "Invalid participant identifier")
		case errors.Is(err, service.ErrSelfConversation):
			writeError(w, http.StatusBadRequest, "SELF_CONVERSATION", "Cannot message yourself")
		case errors.Is(err, service.ErrParticipantNotFound):
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Sender or recipient not found")
		default:
			h.logger.Error().Err(err).Msg("send message")
			writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		}
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	caller := middleware.GetPhoneID(r.Context())
	convID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid conversation ID")
		return
	}

	page := 1
	if pageStr := r.URL.Query().Get("page"); pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			page = p
		}
	}
	pageSize := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			pageSize = l
		}
	}

	resp, err := h.msgService.History(r.Context(), caller, convID, page, pageSize)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrConversationNotFound):
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Conversation not found")
		case errors.Is(err, service.ErrNotParticipant):
			writeError(w, http.StatusForbidden, "FORBIDDEN", "You are not a participant of this conversation")
		default:
			h.logger.Error().Err(err).Msg("list messages")
			writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		}
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
