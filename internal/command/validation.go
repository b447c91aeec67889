package command

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/scry-assistant/internal/domain"
)

// jsonName makes validation errors use the keys the model sees.
func jsonName(field reflect.StructField) string {
	name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	return name
}

// describeValidation turns validator errors into a message the model can act on.
func describeValidation(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", ErrFieldValue, err)
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fmt.Sprintf("key %q %s", fe.Field(), ruleText(fe)))
	}
	return fmt.Errorf("%w: %s", ErrFieldValue, strings.Join(msgs, "; "))
}

func ruleText(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "must not be empty"
	case "flag":
		return fmt.Sprintf("must be one of %s, got %q", quoteAll(domain.Flags), fe.Value())
	case "card_state":
		return fmt.Sprintf("must be one of %s, got %q", quoteAll(domain.CardStates), fe.Value())
	case "gte", "min":
		return "must be at least " + fe.Param()
	case "lte", "max":
		return "must be at most " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	default:
		return fmt.Sprintf("failed the %q rule", fe.Tag())
	}
}

func quoteAll[T ~string](values []T) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = fmt.Sprintf("%q", string(v))
	}
	return strings.Join(quoted, ", ")
}
