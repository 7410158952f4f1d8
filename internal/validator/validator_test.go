package validator

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyai/studyai-go/internal/model"
)

func validQuiz() model.Quiz {
	questions := make([]model.QuizQuestion, model.QuizQuestionCount)
	for i := range questions {
		questions[i] = model.QuizQuestion{
			Question: fmt.Sprintf("Question %d?", i+1),
			Options:  []string{"A", "B", "C", "D"},
			Answer:   "C",
		}
	}
	return model.Quiz{Questions: questions}
}

func TestStruct_CreateUserRequest(t *testing.T) {
	tests := []struct {
		name      string
		req       model.CreateUserRequest
		wantField string
	}{
		{name: "valid", req: model.CreateUserRequest{Email: "a@example.com", Password: "pw"}},
		{name: "missing email", req: model.CreateUserRequest{Password: "pw"}, wantField: "email is required"},
		{name: "malformed email", req: model.CreateUserRequest{Email: "nope", Password: "pw"}, wantField: "email must be a valid email address"},
		{name: "missing password", req: model.CreateUserRequest{Email: "a@example.com"}, wantField: "password is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(tt.req)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantField)
		})
	}
}

func TestStruct_Quiz(t *testing.T) {
	assert.NoError(t, Struct(validQuiz()))

	tests := []struct {
		name   string
		mutate func(q *model.Quiz)
		want   string
	}{
		{
			name:   "four questions",
			mutate: func(q *model.Quiz) { q.Questions = q.Questions[:4] },
			want:   "questions must have exactly 5 items",
		},
		{
			name:   "three options",
			mutate: func(q *model.Quiz) { q.Questions[1].Options = []string{"A", "B", "C"} },
			want:   "questions[1].options must have exactly 4 items",
		},
		{
			name:   "duplicate options",
			mutate: func(q *model.Quiz) { q.Questions[2].Options = []string{"A", "A", "B", "C"} },
			want:   "questions[2].options must not contain duplicates",
		},
		{
			name:   "answer not an option",
			mutate: func(q *model.Quiz) { q.Questions[3].Answer = "E" },
			want:   "questions[3].answer must be one of the options",
		},
		{
			name:   "empty question",
			mutate: func(q *model.Quiz) { q.Questions[0].Question = "" },
			want:   "questions[0].question is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := validQuiz()
			tt.mutate(&q)

			err := Struct(q)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)

			var verr *Error
			assert.True(t, errors.As(err, &verr))
		})
	}
}

func TestStruct_Flashcards(t *testing.T) {
	cards := make([]model.Flashcard, model.FlashcardCount)
	for i := range cards {
		cards[i] = model.Flashcard{Front: "term", Back: "definition"}
	}
	assert.NoError(t, Struct(model.Flashcards{Flashcards: cards}))

	cards[4].Back = ""
	err := Struct(model.Flashcards{Flashcards: cards})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "flashcards[4].back is required")

	var verr *Error
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, []string{"flashcards[4].back"}, verr.Fields())

	err = Struct(model.Flashcards{Flashcards: cards[:2]})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "flashcards must have exactly 5 items")
}
