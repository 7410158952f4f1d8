package model

import (
	"encoding/json"
	"fmt"
)

// ContentType selects which study material is generated.
type ContentType string

const (
	ContentQuiz       ContentType = "quiz"
	ContentFlashcards ContentType = "flashcards"
)

// Expected shape of generated material.
const (
	QuizQuestionCount = 5
	QuizOptionCount   = 4
	FlashcardCount    = 5
)

// ContentRequest asks for a quiz or flashcards on a topic. ContentType is
// checked by the generator, so an empty or unknown value is one error.
type ContentRequest struct {
	Topic       string `json:"topic" validate:"required,max=500"`
	ContentType string `json:"content_type"`
}

// ChatRequest is a single message to the study assistant.
type ChatRequest struct {
	Message string `json:"message" validate:"required,max=4000"`
}

// ChatResponse wraps the assistant's reply.
type ChatResponse struct {
	Response string `json:"response"`
}

// QuizQuestion is a single multiple-choice question. Answer must equal one of Options.
type QuizQuestion struct {
	Question string   `json:"question" validate:"required"`
	Options  []string `json:"options" validate:"len=4,unique,dive,required"`
	Answer   string   `json:"answer" validate:"required"`
}

// Quiz is the complete quiz structure.
type Quiz struct {
	Questions []QuizQuestion `json:"questions" validate:"len=5,dive"`
}

// Flashcard has a term or question on the front and the answer on the back.
type Flashcard struct {
	Front string `json:"front" validate:"required"`
	Back  string `json:"back" validate:"required"`
}

// Flashcards is the complete flashcard deck structure.
type Flashcards struct {
	Flashcards []Flashcard `json:"flashcards" validate:"len=5,dive"`
}

// StudyContent holds exactly one generated payload, selected by Type.
type StudyContent struct {
	Type       ContentType
	Quiz       *Quiz
	Flashcards *Flashcards
}

// MarshalJSON encodes only the payload, so clients see {"questions": [...]}
// or {"flashcards": [...]}.
func (c StudyContent) MarshalJSON() ([]byte, error) {
	switch {
	case c.Type == ContentQuiz && c.Quiz != nil:
		return json.Marshal(c.Quiz)
	case c.Type == ContentFlashcards && c.Flashcards != nil:
		return json.Marshal(c.Flashcards)
	default:
		return nil, fmt.Errorf("study content %q has no payload", c.Type)
	}
}
