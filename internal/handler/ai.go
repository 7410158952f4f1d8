package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/studyai/studyai-go/internal/llm"
	"github.com/studyai/studyai-go/internal/model"
	"github.com/studyai/studyai-go/internal/service"
)

// AIHandler handles study content generation and chat requests.
type AIHandler struct {
	content *service.ContentService
	chat    *service.ChatService
}

// NewAIHandler creates a new AIHandler.
func NewAIHandler(content *service.ContentService, chat *service.ChatService) *AIHandler {
	return &AIHandler{content: content, chat: chat}
}

// HandleGenerateContent handles POST /ai/generate-content requests.
func (h *AIHandler) HandleGenerateContent(w http.ResponseWriter, r *http.Request) {
	var req model.ContentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	content, err := h.content.Generate(r.Context(), req)
	if err != nil {
		var verr *service.ValidationError
		switch {
		case errors.As(err, &verr):
			writeJSON(w, http.StatusUnprocessableEntity, errorResponse(verr.Error()))
		case errors.Is(err, service.ErrInvalidContentType):
			writeJSON(w, http.StatusBadRequest, errorResponse("Invalid content type specified."))
		default:
			slog.ErrorContext(r.Context(), "content generation failed", "content_type", req.ContentType, "error", err)
			writeJSON(w, http.StatusInternalServerError,
				errorResponse("Failed to generate content from AI model: "+upstreamReason(err)))
		}
		return
	}

	writeJSON(w, http.StatusOK, content)
}

// HandleChat handles POST /ai/chat requests.
func (h *AIHandler) HandleChat(w http.ResponseWriter, r *http.Request) {
	var req model.ChatRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.chat.Respond(r.Context(), req)
	if err != nil {
		var verr *service.ValidationError
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusUnprocessableEntity, errorResponse(verr.Error()))
			return
		}
		slog.ErrorContext(r.Context(), "chat failed", "error", err)
		writeJSON(w, http.StatusInternalServerError,
			errorResponse("Failed to get chat response from AI model: "+upstreamReason(err)))
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// upstreamReason summarizes an upstream failure for the client without
// echoing provider response bodies.
func upstreamReason(err error) string {
	var (
		schemaErr *service.SchemaError
		apiErr    *llm.APIError
	)
	switch {
	case errors.As(err, &schemaErr):
		return schemaErr.Error()
	case errors.As(err, &apiErr):
		return fmt.Sprintf("provider returned status %d", apiErr.StatusCode)
	case errors.Is(err, context.DeadlineExceeded):
		return "request to provider timed out"
	case errors.Is(err, context.Canceled):
		return "request cancelled"
	case errors.Is(err, llm.ErrEmptyResponse):
		return llm.ErrEmptyResponse.Error()
	default:
		return "provider unavailable"
	}
}
