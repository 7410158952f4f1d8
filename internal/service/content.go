package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/studyai/studyai-go/internal/llm"
	"github.com/studyai/studyai-go/internal/model"
	"github.com/studyai/studyai-go/internal/validator"
)

var tracer = otel.Tracer("studyai/service")

// ContentService generates quizzes and flashcards through the LLM provider.
type ContentService struct {
	llm llm.Provider
}

// NewContentService creates a new ContentService.
func NewContentService(provider llm.Provider) *ContentService {
	return &ContentService{llm: provider}
}

// Generate asks the model for study content and returns it only if it
// matches the requested shape exactly.
func (s *ContentService) Generate(ctx context.Context, req model.ContentRequest) (model.StudyContent, error) {
	if err := validator.Struct(req); err != nil {
		return model.StudyContent{}, &ValidationError{Err: err}
	}

	ct := model.ContentType(req.ContentType)
	prompt, ok := contentPrompt(ct, req.Topic)
	if !ok {
		return model.StudyContent{}, ErrInvalidContentType
	}

	ctx, span := tracer.Start(ctx, "content.Generate", trace.WithAttributes(
		attribute.String("content.type", string(ct)),
	))
	defer span.End()

	slog.InfoContext(ctx, "generating study content", "topic", req.Topic, "content_type", ct)

	raw, err := s.llm.Complete(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: generatorSystemPrompt},
			{Role: llm.RoleUser, Content: prompt},
		},
		JSONMode: true,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "llm call failed")
		return model.StudyContent{}, upstream(err)
	}

	content, err := parseContent(ct, raw)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid model output")
		slog.WarnContext(ctx, "model output rejected", "content_type", ct, "error", err)
		return model.StudyContent{}, upstream(err)
	}
	return content, nil
}

// parseContent strictly decodes raw into the shape for ct and validates it.
func parseContent(ct model.ContentType, raw string) (model.StudyContent, error) {
	switch ct {
	case model.ContentQuiz:
		var quiz model.Quiz
		if err := decodeStrict(ct, raw, &quiz); err != nil {
			return model.StudyContent{}, err
		}
		return model.StudyContent{Type: ct, Quiz: &quiz}, nil
	case model.ContentFlashcards:
		var cards model.Flashcards
		if err := decodeStrict(ct, raw, &cards); err != nil {
			return model.StudyContent{}, err
		}
		return model.StudyContent{Type: ct, Flashcards: &cards}, nil
	default:
		return model.StudyContent{}, ErrInvalidContentType
	}
}

func decodeStrict(ct model.ContentType, raw string, dst any) error {
	body := extractJSONObject(raw)
	if body == "" {
		return &SchemaError{ContentType: ct, Reason: "no JSON object found"}
	}

	dec := json.NewDecoder(strings.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return &SchemaError{ContentType: ct, Reason: err.Error()}
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return &SchemaError{ContentType: ct, Reason: "unexpected data after JSON object"}
	}
	// encoding/json folds case when matching field names; keys must match exactly.
	if err := matchKeys(body, dst); err != nil {
		return &SchemaError{ContentType: ct, Reason: err.Error()}
	}

	if err := validator.Struct(dst); err != nil {
		return &SchemaError{ContentType: ct, Reason: err.Error()}
	}
	return nil
}

// matchKeys reports the first object key in body that differs from the key
// dst encodes to at the same position.
func matchKeys(body string, dst any) error {
	var got any
	if err := json.Unmarshal([]byte(body), &got); err != nil {
		return err
	}
	canonical, err := json.Marshal(dst)
	if err != nil {
		return err
	}
	var want any
	if err := json.Unmarshal(canonical, &want); err != nil {
		return err
	}
	return compareKeys("", got, want)
}

func compareKeys(path string, got, want any) error {
	switch w := want.(type) {
	case map[string]any:
		g, ok := got.(map[string]any)
		if !ok {
			return fmt.Errorf("%s must be an object", displayPath(path))
		}
		for k := range g {
			if _, ok := w[k]; !ok {
				return fmt.Errorf("unknown field %q", joinPath(path, k))
			}
		}
		for k, wv := range w {
			gv, ok := g[k]
			if !ok {
				return fmt.Errorf("missing field %q", joinPath(path, k))
			}
			if err := compareKeys(joinPath(path, k), gv, wv); err != nil {
				return err
			}
		}
	case []any:
		g, ok := got.([]any)
		if !ok || len(g) != len(w) {
			return fmt.Errorf("%s does not match the decoded array", displayPath(path))
		}
		for i := range w {
			if err := compareKeys(fmt.Sprintf("%s[%d]", path, i), g[i], w[i]); err != nil {
				return err
			}
		}
	}
	return nil
}

func joinPath(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

func displayPath(path string) string {
	if path == "" {
		return "top level"
	}
	return path
}

// extractJSONObject trims a markdown code fence or surrounding prose and
// returns the outermost {...} span.
func extractJSONObject(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimPrefix(s, "json")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}

	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end < start {
		return ""
	}
	return s[start : end+1]
}
