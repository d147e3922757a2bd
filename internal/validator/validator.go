package validator

import (
	"reflect"
	"strings"

	"github.com/SAP-F-2025/exam-delivery-service/internal/models"
	"github.com/go-playground/validator/v10"
)

// Validator combines struct-tag validation with request-level business rules
type Validator struct {
	structValidator   *validator.Validate
	businessValidator *BusinessValidator
}

// New creates a new centralized validator instance
func New() *Validator {
	structValidator := validator.New()

	// Register all custom validators once
	registerCustomValidators(structValidator)

	return &Validator{
		structValidator:   structValidator,
		businessValidator: NewBusinessValidator(),
	}
}

// ValidateStruct validates struct tags only
func (v *Validator) ValidateStruct(s interface{}) error {
	return v.structValidator.Struct(s)
}

// Validate runs struct tags first, then business rules. Failures come back
// as ValidationErrors keyed by json field path.
func (v *Validator) Validate(s interface{}) error {
	if err := v.ValidateStruct(s); err != nil {
		if errs := ToValidationErrors(err); len(errs) > 0 {
			return errs
		}
		return err
	}

	if errs := v.businessValidator.Validate(s); len(errs) > 0 {
		return errs
	}

	return nil
}

func registerCustomValidators(validate *validator.Validate) {
	validate.RegisterValidation("sat_section", validateSection)
	validate.RegisterValidation("test_scope", validateScope)
	validate.RegisterValidation("time_multiplier", validateTimeMultiplier)
	validate.RegisterValidation("attempt_status", validateAttemptStatus)

	// Report json names so errors match the request body
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

func validateSection(fl validator.FieldLevel) bool {
	switch models.SATSection(fl.Field().String()) {
	case models.SectionReadingWriting, models.SectionMath:
		return true
	}
	return false
}

func validateScope(fl validator.FieldLevel) bool {
	switch models.TestScope(fl.Field().String()) {
	case models.ScopeFull, models.ScopeRWOnly, models.ScopeMathOnly, models.ScopeSingleModule:
		return true
	}
	return false
}

// Accommodations allow standard, time-and-a-half and double time.
func validateTimeMultiplier(fl validator.FieldLevel) bool {
	switch fl.Field().Float() {
	case 1, 1.5, 2:
		return true
	}
	return false
}

func validateAttemptStatus(fl validator.FieldLevel) bool {
	switch models.AttemptStatus(fl.Field().String()) {
	case models.AttemptInProgress, models.AttemptCompleted, models.AttemptAbandoned, models.AttemptTimedOut:
		return true
	}
	return false
}
