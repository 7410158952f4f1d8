package service

import (
	"context"
	"errors"
	"strings"

	"go.opentelemetry.io/otel/codes"

	"github.com/studyai/studyai-go/internal/llm"
	"github.com/studyai/studyai-go/internal/model"
	"github.com/studyai/studyai-go/internal/validator"
)

var errEmptyReply = errors.New("model returned an empty reply")

// ChatService answers single-turn messages as the StudyAI assistant.
// No conversation history is kept between calls.
type ChatService struct {
	llm llm.Provider
}

// NewChatService creates a new ChatService.
func NewChatService(provider llm.Provider) *ChatService {
	return &ChatService{llm: provider}
}

// Respond returns the assistant's trimmed reply to message.
func (s *ChatService) Respond(ctx context.Context, req model.ChatRequest) (model.ChatResponse, error) {
	if err := validator.Struct(req); err != nil {
		return model.ChatResponse{}, &ValidationError{Err: err}
	}

	ctx, span := tracer.Start(ctx, "chat.Respond")
	defer span.End()

	reply, err := s.llm.Complete(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: chatSystemPrompt},
			{Role: llm.RoleUser, Content: req.Message},
		},
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "llm call failed")
		return model.ChatResponse{}, upstream(err)
	}

	reply = strings.TrimSpace(reply)
	if reply == "" {
		span.SetStatus(codes.Error, "empty reply")
		return model.ChatResponse{}, upstream(errEmptyReply)
	}
	return model.ChatResponse{Response: reply}, nil
}
