package validator

import (
	"errors"
	"fmt"
	"roomtrack/pkg/logger"
	"roomtrack/pkg/model"
	"strings"

	"github.com/go-playground/validator/v10"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

type AttendanceValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewAttendanceValidator(log *logger.Logger) *AttendanceValidator {
	v := validator.New()

	log.Info("Attendance validator initialized successfully")

	return &AttendanceValidator{
		validate: v,
		logger:   log,
	}
}

func (v *AttendanceValidator) ValidateCheckIn(req *model.CheckInRequest) error {
	if err := v.validate.Struct(req); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}

	// method+value and person_id are alternative identification paths; exactly
	// one of them must be supplied.
	if req.PersonID != "" && req.Value != "" {
		return ValidationErrors{
			ValidationError{
				Field:   "PersonID",
				Message: "person_id and value are mutually exclusive",
			},
		}
	}

	if req.PersonID != "" && req.Method != "" && req.Method != model.IdentifyByPersonID {
		return ValidationErrors{
			ValidationError{
				Field:   "Method",
				Message: "method must be person_id when person_id is supplied",
			},
		}
	}

	return nil
}

func (v *AttendanceValidator) ValidateCheckOut(req *model.CheckOutRequest) error {
	if err := v.validate.Struct(req); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}

	if req.PersonID != "" && req.Value != "" {
		return ValidationErrors{
			ValidationError{
				Field:   "PersonID",
				Message: "person_id and value are mutually exclusive",
			},
		}
	}

	return nil
}

func (v *AttendanceValidator) translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "required_without":
			message = fmt.Sprintf("%s is required when %s is absent", err.Field(), err.Param())
		case "min":
			message = fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s", err.Field(), err.Param())
		case "oneof":
			message = fmt.Sprintf("%s must be one of: %s", err.Field(), err.Param())
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return validationErrors
}
