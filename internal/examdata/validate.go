package examdata

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"autoscribe/internal/domain"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func examValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(field reflect.StructField) string {
			name := strings.SplitN(field.Tag.Get("yaml"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		validate.RegisterStructValidation(questionRules, domain.Question{})
	})
	return validate
}

// questionRules checks constraints that span fields of a question.
func questionRules(sl validator.StructLevel) {
	q := sl.Current().Interface().(domain.Question)
	if q.Kind == domain.QuestionKindMCQ && len(q.Options) < 2 {
		sl.ReportError(q.Options, "options", "Options", "mcq_options", "")
	}
	if q.Kind == domain.QuestionKindDescriptive && len(q.Options) > 0 {
		sl.ReportError(q.Options, "options", "Options", "descriptive_options", "")
	}
	if q.CorrectAnswer != nil && *q.CorrectAnswer >= len(q.Options) {
		sl.ReportError(q.CorrectAnswer, "correctAnswer", "CorrectAnswer", "option_index", "")
	}
}

// Validate checks an exam definition and reports every problem at once.
func Validate(exam domain.Exam) error {
	var problems []string

	if err := examValidator().Struct(exam); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return fmt.Errorf("validate exam: %w", err)
		}
		for _, fieldErr := range fieldErrs {
			problems = append(problems, describe(fieldErr))
		}
	}

	seen := make(map[string]int, len(exam.Questions))
	for i, q := range exam.Questions {
		if q.ID == "" {
			continue
		}
		if first, ok := seen[q.ID]; ok {
			problems = append(problems, fmt.Sprintf("questions[%d].id: duplicates questions[%d]", i, first))
			continue
		}
		seen[q.ID] = i
	}

	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("invalid exam: %s", strings.Join(problems, "; "))
}

func describe(fieldErr validator.FieldError) string {
	path := fieldErr.Namespace()
	if i := strings.Index(path, "."); i >= 0 {
		path = path[i+1:]
	}
	switch fieldErr.Tag() {
	case "required":
		return path + ": is required"
	case "mcq_options":
		return path + ": a multiple choice question needs at least two options"
	case "descriptive_options":
		return path + ": a descriptive question cannot have options"
	case "option_index":
		return path + ": does not name one of the options"
	case "min":
		return fmt.Sprintf("%s: at least %s required", path, fieldErr.Param())
	case "max":
		return fmt.Sprintf("%s: at most %s allowed", path, fieldErr.Param())
	case "oneof":
		return fmt.Sprintf("%s: must be one of %s", path, fieldErr.Param())
	default:
		return fmt.Sprintf("%s: failed %s", path, fieldErr.Tag())
	}
}
