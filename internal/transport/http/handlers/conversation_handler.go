package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dkovacev/chatter/internal/service"
	"github.com/dkovacev/chatter/internal/transport/http/middleware"
)

type ConversationHandler struct {
	convService *service.ConversationService
	readService *service.ReadService
	logger      zerolog.Logger
}

func NewConversationHandler(convService *service.ConversationService, readService *service.ReadService, logger zerolog.Logger) *ConversationHandler {
	return &ConversationHandler{
		convService: convService,
		readService: readService,
		logger:      logger,
	}
}

// CreateOrGet resolves the single conversation between the caller and the
// given participant, creating it on first contact.
func (h *ConversationHandler) CreateOrGet(w http.ResponseWriter, r *http.Request) {
	caller := middleware.GetPhoneID(r.Context())

	var input struct {
		To string `json:"to"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}
	if input.To == "" {
		writeError(w, http.StatusBadRequest, "MISSING_TO", "'to' field is required")
		return
	}

	conv, err := h.convService.Resolve(r.Context(), caller, input.To)
	if err != nil {
		h.writeConversationError(w, err, "create or get conversation")
		return
	}

	writeJSON(w, http.StatusOK, conv)
}

func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	caller := middleware.GetPhoneID(r.Context())

	convs, err := h.convService.List(r.Context(), caller)
	if err != nil {
		h.writeConversationError(w, err, "list conversations")
		return
	}

	writeJSON(w, http.StatusOK, convs)
}

func (h *ConversationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	caller := middleware.GetPhoneID(r.Context())
	convID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid conversation ID")
		return
	}

	result, err := h.readService.MarkRead(r.Context(), convID, caller)
	if err != nil {
		h.writeConversationError(w, err, "mark read")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *ConversationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	caller := middleware.GetPhoneID(r.Context())
	convID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid conversation ID")
		return
	}

	mode := r.URL.Query().Get("mode")
	if mode == "" {
		mode = "soft"
	}
	if mode != "soft" && mode != "hard" {
		writeError(w, http.StatusBadRequest, "INVALID_MODE", "mode must be soft or hard")
		return
	}

	if err := h.convService.Delete(r.Context(), convID, caller, mode == "hard"); err != nil {
		h.writeConversationError(w, err, "delete conversation")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *ConversationHandler) writeConversationError(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, service.ErrInvalidParticipant):
		writeError(w, http.StatusBadRequest, "INVALID_PARTICIPANT", "Invalid participant identifier")
	case errors.Is(err, service.ErrSelfConversation):
		writeError(w, http.StatusBadRequest, "SELF_CONVERSATION", "Cannot create conversation with the same participant")
	case errors.Is(err, service.ErrParticipantNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Participant not found")
	case errors.Is(err, service.ErrConversationNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Conversation not found")
	case errors.Is(err, service.ErrNotParticipant):
		writeError(w, http.StatusForbidden, "FORBIDDEN", "You are not a participant of this conversation")
	default:
		h.logger.Error().Err(err).Str("op", op).Msg("conversation handler")
		writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
	}
}
