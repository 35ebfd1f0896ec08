package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// flagNames maps struct fields to the CLI flag users set them with.
var flagNames = map[string]string{
	"Gate":           "--gate",
	"User":           "--user",
	"Listen":         "--listen",
	"Origin":         "--origin",
	"LyricsEndpoint": "lyrics-endpoint",
	"ClientID":       "spotify-client-id",
	"ClientSecret":   "spotify-client-secret",
	"Timeout":        "timeout",
}

var validate = validator.New()

// Validate checks a resolved settings struct and reports the first problem
// per field in flag terms.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		name := flagNames[fe.Field()]
		if name == "" {
			name = fe.Field()
		}
		msgs = append(msgs, fmt.Sprintf("%s %s", name, friendlyMessage(fe)))
	}
	return errors.New(strings.Join(msgs, "; "))
}

func friendlyMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "required_with":
		return "must be set together with " + fe.Param()
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "url":
		return "must be a valid URL"
	case "hostname_port":
		return "must be host:port"
	case "max":
		return fmt.Sprintf("must not exceed %s characters", fe.Param())
	case "printascii":
		return "must be printable ASCII"
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	default:
		return fmt.Sprintf("failed %q validation", fe.Tag())
	}
}
