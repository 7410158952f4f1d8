package service

import (
	"fmt"
	"strings"

	"github.com/studyai/studyai-go/internal/model"
)

const generatorSystemPrompt = `You are StudyAI, a study content generator. ` +
	`You answer with a single JSON object and nothing else: no prose, no markdown.`

const chatSystemPrompt = `You are a friendly and helpful assistant named StudyAI.
Your primary goal is to help users with their academic studies. Answer questions clearly and concisely.
You are also empathetic. If a user expresses feelings of stress or asks for non-academic advice,
offer brief, supportive, and encouraging words. Do not give medical advice.
Gently guide the conversation back to how you can help with their studies.`

var contentInstructions = map[model.ContentType]string{
	model.ContentQuiz: fmt.Sprintf(`Generate a %d-question multiple-choice quiz on the topic of '%%s'.
Return ONLY a valid JSON object.
The object must have a single key "questions" which is an array of exactly %d objects.
Each object in the array must have keys: "question" (string), "options" (an array of exactly %d distinct strings), and "answer" (the correct option, copied exactly from "options").
Example shape:
{"questions": [{"question": "...", "options": ["...", "...", "...", "..."], "answer": "..."}]}`,
		model.QuizQuestionCount, model.QuizQuestionCount, model.QuizOptionCount),

	model.ContentFlashcards: fmt.Sprintf(`Generate %d flashcards on the topic of '%%s'.
Return ONLY a valid JSON object.
The object must have a single key "flashcards" which is an array of exactly %d objects.
Each object in the array must have two string keys: "front" (a term or question) and "back" (its definition or answer).
Example shape:
{"flashcards": [{"front": "...", "back": "..."}]}`,
		model.FlashcardCount, model.FlashcardCount),
}

// contentPrompt returns the user prompt for ct, or false if ct is unknown.
func contentPrompt(ct model.ContentType, topic string) (string, bool) {
	tmpl, ok := contentInstructions[ct]
	if !ok {
		return "", false
	}
	return fmt.Sprintf(tmpl, sanitizeTopic(topic)), true
}

// sanitizeTopic folds the topic onto one line and drops quote characters so it
// cannot close the quoted span in the instruction.
func sanitizeTopic(topic string) string {
	topic = strings.Join(strings.Fields(topic), " ")
	return strings.NewReplacer("'", "", "`", "").Replace(topic)
}
