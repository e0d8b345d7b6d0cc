// Package validate checks form input before it is sent to the backend.
//
// Rules are go-playground/validator tags; failures come back keyed by the
// field's JSON name with a readable message:
//
//	type ReviewRequest struct {
//	    RestRating int `json:"restRating" validate:"required,min=1,max=5"`
//	}
//	if err := validate.Check(req); err != nil {
//	    // err.Error(): "The restRating must be at least 1."
//	}
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	once sync.Once
	v    *validator.Validate
)

func instance() *validator.Validate {
	once.Do(func() {
		v = validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			if name == "" {
				return f.Name
			}
			return name
		})
		_ = v.RegisterValidation("hhmm", func(fl validator.FieldLevel) bool {
			s := fl.Field().String()
			return len(s) == 5 && s[2] == ':' && s[:2] <= "23" && s[3:] <= "59"
		})
	})
	return v
}

// Errors maps JSON field names to messages.
type Errors map[string]string

func (e Errors) Error() string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	msgs := make([]string, 0, len(keys))
	for _, k := range keys {
		msgs = append(msgs, e[k])
	}
	return strings.Join(msgs, " ")
}

// Struct validates s and returns one message per failing field. An empty
// map means s is valid.
func Struct(s interface{}) map[string]string {
	errs := map[string]string{}
	err := instance().Struct(s)
	if err == nil {
		return errs
	}
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		errs["_"] = err.Error()
		return errs
	}
	for _, fe := range ves {
		if _, seen := errs[fe.Field()]; !seen {
			errs[fe.Field()] = message(fe)
		}
	}
	return errs
}

// Check is Struct as an error; nil when valid.
func Check(s interface{}) error {
	if errs := Struct(s); len(errs) > 0 {
		return Errors(errs)
	}
	return nil
}

// HasErrors returns true when the errs map is non-empty.
func HasErrors(errs map[string]string) bool { return len(errs) > 0 }

func message(fe validator.FieldError) string {
	field, param := fe.Field(), fe.Param()
	numeric := false
	switch fe.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		numeric = true
	}

	switch fe.Tag() {
	case "required", "required_if", "required_with":
		return fmt.Sprintf("The %s field is required.", field)
	case "email":
		return fmt.Sprintf("The %s must be a valid email address.", field)
	case "min", "gte":
		if numeric {
			return fmt.Sprintf("The %s must be at least %s.", field, param)
		}
		return fmt.Sprintf("The %s must be at least %s characters.", field, param)
	case "max", "lte":
		if numeric {
			return fmt.Sprintf("The %s must not be greater than %s.", field, param)
		}
		return fmt.Sprintf("The %s must not be greater than %s characters.", field, param)
	case "oneof":
		return fmt.Sprintf("The %s must be one of: %s.", field, strings.ReplaceAll(param, " ", ", "))
	case "hhmm":
		return fmt.Sprintf("The %s must be a time like 14:05.", field)
	}
	return fmt.Sprintf("The %s field is invalid (%s).", field, fe.Tag())
}
