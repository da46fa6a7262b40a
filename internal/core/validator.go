package core

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"wellwatch/internal/types"
)

// Validator wraps go-playground/validator with the WellWatch tags and maps
// failures onto validation AppErrors.
type Validator struct {
	v      *validator.Validate
	logger *slog.Logger
}

// NewValidator registers:
//   - well_status: a status a client may store (active, warning, critical)
//   - reading_source: device, manual or bulk_import
func NewValidator(logger *slog.Logger) *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report JSON names instead of Go field names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})

	_ = v.RegisterValidation("well_status", func(fl validator.FieldLevel) bool {
		s := types.WellStatus(fl.Field().String())
		return s == "" || (s.Valid() && s != types.WellStatusOffline)
	})
	_ = v.RegisterValidation("reading_source", func(fl validator.FieldLevel) bool {
		s := types.ReadingSource(fl.Field().String())
		return s == "" || s.Valid()
	})

	return &Validator{v: v, logger: logger}
}

// ValidateStruct returns nil or an AppError describing the first failing field.
func (val *Validator) ValidateStruct(s any) error {
	err := val.v.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		val.logger.Error("validator misuse", "error", err)
		return types.NewAppError(types.ErrCodeInternalUnexpected, "validation failed", err)
	}

	fe := verrs[0]
	code := types.ErrCodeValidationInvalidField
	switch fe.Tag() {
	case "required":
		code = types.ErrCodeValidationMissingField
	case "latitude":
		code = types.ErrCodeValidationInvalidLat
	case "longitude":
		code = types.ErrCodeValidationInvalidLng
	case "well_status":
		code = types.ErrCodeValidationInvalidStatus
	case "reading_source":
		code = types.ErrCodeValidationInvalidSource
	}

	details := map[string]any{"field": fe.Field(), "rule": fe.Tag()}
	if fe.Param() != "" {
		details["param"] = fe.Param()
	}
	return types.NewAppErrorWithDetails(code, fieldMessage(fe), err, details)
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "latitude":
		return fmt.Sprintf("%s must be between -90 and 90", fe.Field())
	case "longitude":
		return fmt.Sprintf("%s must be between -180 and 180", fe.Field())
	case "max":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}
