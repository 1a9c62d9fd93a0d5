package ingestion

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	apperrors "lookout/pkg/errors"
)

var envelopeFields = map[string]string{
	"EventType":  "event_type",
	"Severity":   "severity",
	"OccurredAt": "occurred_at",
	"CameraID":   "camera_id",
	"Meta":       "meta",
}

type fieldErrors map[string][]string

func (f fieldErrors) add(field, msg string) {
	f[field] = append(f[field], msg)
}

func (f fieldErrors) err() error {
	if len(f) == 0 {
		return nil
	}
	return apperrors.FieldErrors(f)
}

// BindError turns a gin binding failure into the standard validation error.
func BindError(err error) error {
	errs := fieldErrors{}

	var verrs validator.ValidationErrors
	var typeErr *json.UnmarshalTypeError
	var syntaxErr *json.SyntaxError
	switch {
	case errors.As(err, &verrs):
		for _, fe := range verrs {
			field := envelopeFields[fe.Field()]
			if field == "" {
				field = strings.ToLower(fe.Field())
			}
			errs.add(field, tagMessage(field, fe))
		}
	case errors.As(err, &typeErr):
		field := typeErr.Field
		if field == "" {
			field = "body"
		}
		errs.add(field, fmt.Sprintf("The %s field must be of type %s.", field, expectedType(field)))
	case errors.As(err, &syntaxErr), errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		errs.add("body", "The request body must be a JSON object.")
	default:
		errs.add("body", err.Error())
	}
	return errs.err()
}

func tagMessage(field string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("The %s field is required.", field)
	case "oneof":
		return fmt.Sprintf("The selected %s is invalid.", field)
	}
	return fmt.Sprintf("The %s field is invalid.", field)
}

func expectedType(field string) string {
	switch field {
	case "meta":
		return "object"
	default:
		return "string"
	}
}

// Validate performs the checks binding tags cannot express and returns the parsed
// occurrence time.
func Validate(env Envelope) (time.Time, error) {
	errs := fieldErrors{}

	if strings.TrimSpace(env.EventType) == "" {
		errs.add("event_type", "The event_type field is required.")
	}

	switch env.Severity {
	case SeverityInfo, SeverityWarning, SeverityCritical:
	case "":
		errs.add("severity", "The severity field is required.")
	default:
		errs.add("severity", "The selected severity is invalid.")
	}

	var occurredAt time.Time
	if env.OccurredAt == "" {
		errs.add("occurred_at", "The occurred_at field is required.")
	} else {
		t, err := time.Parse(time.RFC3339, env.OccurredAt)
		if err != nil {
			errs.add("occurred_at", "The occurred_at field must be a valid RFC 3339 date.")
		}
		occurredAt = t
	}

	if v, ok := env.Meta[MetaModule]; ok && v != nil {
		if _, isString := v.(string); !isString {
			errs.add("meta.module", "The meta.module field must be a string.")
		}
	}

	return occurredAt, errs.err()
}

// ModuleOf returns the normalized module an envelope declares, or "" when it declares none.
func ModuleOf(env Envelope) string {
	module, _ := env.Meta[MetaModule].(string)
	return strings.ToLower(strings.TrimSpace(module))
}
