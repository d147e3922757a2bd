package validator

import (
	"fmt"
)

const maxAnswerLength = 255

// BusinessRules is implemented by requests whose rules span several fields.
type BusinessRules interface {
	BusinessRules(v *BusinessValidator) ValidationErrors
}

// BusinessValidator checks rules struct tags cannot express
type BusinessValidator struct{}

func NewBusinessValidator() *BusinessValidator {
	return &BusinessValidator{}
}

func (v *BusinessValidator) Validate(s interface{}) ValidationErrors {
	if r, ok := s.(BusinessRules); ok {
		return r.BusinessRules(v)
	}
	return nil
}

// UniqueIDs reports every id after its first occurrence.
func (v *BusinessValidator) UniqueIDs(field string, ids []uint) ValidationErrors {
	var errs ValidationErrors
	seen := make(map[uint]struct{}, len(ids))
	for i, id := range ids {
		if _, dup := seen[id]; dup {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("%s[%d]", field, i),
				Message: "must not repeat a question",
				Value:   id,
				Rule:    "unique_question",
			})
			continue
		}
		seen[id] = struct{}{}
	}
	return errs
}

// AnswerLength rejects answers longer than the stored column.
func (v *BusinessValidator) AnswerLength(field string, answer *string) *ValidationError {
	if answer == nil || len(*answer) <= maxAnswerLength {
		return nil
	}
	return &ValidationError{
		Field:   field,
		Message: "must not exceed 255 characters",
		Rule:    "answer_length",
	}
}
