package activities

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"unicode"

	"github.com/estatedesk/partnerflow/pkg/models"
	"github.com/go-playground/validator/v10"
)

var phonePattern = regexp.MustCompile(`^\+?[0-9]{10,13}$`)

func newValidator() *validator.Validate {
	validate := validator.New(validator.WithRequiredStructEnabled())

	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}

		return name
	})

	_ = validate.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		compact := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "").Replace(fl.Field().String())

		return phonePattern.MatchString(compact)
	})

	return validate
}

func (a *Activities) ValidatePropertyData(_ context.Context, data map[string]any) (ValidationResult, error) {
	return a.validateData(data, &models.PropertyData{}), nil
}

func (a *Activities) ValidateProjectData(_ context.Context, data map[string]any) (ValidationResult, error) {
	return a.validateData(data, &models.ProjectData{}), nil
}

func (a *Activities) ValidatePGHostelData(_ context.Context, data map[string]any) (ValidationResult, error) {
	return a.validateData(data, &models.PGHostelData{}), nil
}

func (a *Activities) ValidateDeveloperData(_ context.Context, data map[string]any) (ValidationResult, error) {
	return a.validateData(data, &models.DeveloperData{}), nil
}

func (a *Activities) ValidatePartnerData(_ context.Context, data map[string]any) (ValidationResult, error) {
	return a.validateData(data, &models.PartnerData{}), nil
}

func (a *Activities) ValidateBusinessData(_ context.Context, data map[string]any) (ValidationResult, error) {
	return a.validateData(data, &models.BusinessData{}), nil
}

// validateData decodes the raw payload into target and checks its struct tags. It never
// fails with an error: malformed payloads are reported as validation errors.
func (a *Activities) validateData(data map[string]any, target any) ValidationResult {
	if errs := decodeInto(data, target); len(errs) > 0 {
		return ValidationResult{Outcome: models.Failed(models.CodeValidationFailed, "Validation failed", errs...)}
	}

	err := a.validate.Struct(target)
	if err == nil {
		return ValidationResult{Outcome: models.Succeeded("Validation passed")}
	}

	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return ValidationResult{Outcome: models.Failed(models.CodeValidationFailed, "Validation failed", err.Error())}
	}

	messages := make([]string, 0, len(fieldErrors))
	for _, fieldError := range fieldErrors {
		messages = append(messages, describe(fieldError))
	}

	return ValidationResult{Outcome: models.Failed(models.CodeValidationFailed, "Validation failed", messages...)}
}

func decodeInto(data map[string]any, target any) []string {
	payload, err := json.Marshal(data)
	if err != nil {
		return []string{"payload is not serializable"}
	}

	err = json.Unmarshal(payload, target)
	if err == nil {
		return nil
	}

	var typeError *json.UnmarshalTypeError
	if errors.As(err, &typeError) {
		return []string{fmt.Sprintf("%s must be %s", humanize(typeError.Field), kindName(typeError.Type))}
	}

	return []string{"payload is malformed"}
}

func kindName(t reflect.Type) string {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	switch t.Kind() {
	case reflect.Int, reflect.Int32, reflect.Int64, reflect.Float32, reflect.Float64:
		return "a number"
	case reflect.String:
		return "text"
	case reflect.Bool:
		return "true or false"
	case reflect.Slice:
		return "a list"
	default:
		return "a valid value"
	}
}

func describe(fieldError validator.FieldError) string {
	label := humanize(fieldError.Field())
	param := fieldError.Param()

	switch fieldError.Tag() {
	case "required":
		return label + " is required"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", label, param)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", label, param)
	case "len":
		return fmt.Sprintf("%s must be exactly %s characters", label, param)
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", label, param)
	case "gte":
		return fmt.Sprintf("%s must be at least %s", label, param)
	case "lte":
		return fmt.Sprintf("%s must be at most %s", label, param)
	case "gtefield":
		return fmt.Sprintf("%s must not be less than %s", label, humanize(param))
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", label, strings.ReplaceAll(param, " ", ", "))
	case "email":
		return label + " must be a valid email address"
	case "phone":
		return label + " must be a valid phone number"
	case "url":
		return label + " must be a valid URL"
	case "numeric":
		return label + " must contain only digits"
	case "alphanum":
		return label + " must contain only letters and digits"
	default:
		return label + " is invalid"
	}
}

// humanize turns a camelCase field name into lower-case words: developerName becomes developer name.
func humanize(field string) string {
	var builder strings.Builder

	for i, r := range field {
		if unicode.IsUpper(r) {
			if i > 0 {
				builder.WriteRune(' ')
			}

			r = unicode.ToLower(r)
		}

		builder.WriteRune(r)
	}

	return builder.String()
}
