package study

import (
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateCourse checks a course before it is created. Exam dates must lie in
// the future relative to now.
func ValidateCourse(c Course, now time.Time) error {
	if err := validateStruct(c); err != nil {
		return err
	}
	if !c.ExamDate.After(now) {
		return Invalid("exam_date", "must be in the future")
	}
	return nil
}

// ValidateTopic checks topic fields.
func ValidateTopic(t Topic) error {
	return validateStruct(t)
}

// ValidateDependency checks dependency fields, including the self-loop rule.
func ValidateDependency(d Dependency) error {
	if d.PrerequisiteTopicID == d.DependentTopicID && d.PrerequisiteTopicID != 0 {
		return Invalid("dependent_topic_id", "a topic cannot be its own prerequisite")
	}
	return validateStruct(d)
}

func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &ValidationError{Message: err.Error()}
	}
	fe := verrs[0]
	return &ValidationError{Field: jsonName(fe.Field()), Message: describe(fe)}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "nefield":
		return "must differ from " + jsonName(fe.Param())
	default:
		return "failed " + fe.Tag() + " check"
	}
}

// jsonName converts a Go field name like SkillLevel to skill_level.
func jsonName(field string) string {
	var b strings.Builder
	for i, r := range field {
		if r >= 'A' && r <= 'Z' {
			if i > 0 && !(field[i-1] >= 'A' && field[i-1] <= 'Z') {
				b.WriteByte('_')
			}
			b.WriteRune(r + ('a' - 'A'))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
