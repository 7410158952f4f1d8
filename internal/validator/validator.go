// Package validator wraps go-playground/validator with the struct rules
// used for request bodies and generated study content.
package validator

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/studyai/studyai-go/internal/model"
)

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	// Report json field names instead of Go field names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return strings.ToLower(fld.Name)
		}
		return name
	})

	validate.RegisterStructValidation(answerInOptions, model.QuizQuestion{})
}

// Struct validates s against its `validate` tags. The returned error, if any,
// has a human-readable message listing every failed field.
func Struct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	return &Error{fields: verrs}
}

// Error describes failed field validations.
type Error struct {
	fields validator.ValidationErrors
}

func (e *Error) Error() string {
	msgs := make([]string, 0, len(e.fields))
	for _, fe := range e.fields {
		msgs = append(msgs, describe(fe))
	}
	return strings.Join(msgs, "; ")
}

// Fields returns the paths of the failed fields, e.g. "questions[1].options".
func (e *Error) Fields() []string {
	names := make([]string, 0, len(e.fields))
	for _, fe := range e.fields {
		names = append(names, fieldPath(fe))
	}
	return names
}

// fieldPath drops the top-level struct name from the namespace.
func fieldPath(fe validator.FieldError) string {
	field := fe.Namespace()
	if _, rest, ok := strings.Cut(field, "."); ok {
		return rest
	}
	return field
}

func describe(fe validator.FieldError) string {
	field := fieldPath(fe)

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "len":
		return fmt.Sprintf("%s must have exactly %s items", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "unique":
		return fmt.Sprintf("%s must not contain duplicates", field)
	case "answer_in_options":
		return fmt.Sprintf("%s must be one of the options", field)
	default:
		return fmt.Sprintf("%s failed %q validation", field, fe.Tag())
	}
}

func answerInOptions(sl validator.StructLevel) {
	q := sl.Current().Interface().(model.QuizQuestion)
	if q.Answer == "" {
		return
	}
	if !slices.Contains(q.Options, q.Answer) {
		sl.ReportError(q.Answer, "answer", "Answer", "answer_in_options", "")
	}
}
