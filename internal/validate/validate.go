// Package validate wraps go-playground/validator with English messages keyed
// by JSON field names.
package validate

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"github.com/pavelanni/exampaper/internal/model"
)

// ErrValidation is matched by every *Error.
var ErrValidation = errors.New("validation failed")

// Error carries the per-field violations of a rejected value.
type Error struct {
	Msg    string
	Fields []model.Violation
}

func (e *Error) Error() string {
	if len(e.Fields) == 0 {
		return e.Msg
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.String())
	}
	return e.Msg + ": " + strings.Join(parts, "; ")
}

func (e *Error) Is(target error) bool {
	return target == ErrValidation
}

// New builds an *Error from a message and optional violations.
func New(msg string, fields ...model.Violation) error {
	return &Error{Msg: msg, Fields: fields}
}

var (
	once       sync.Once
	validate   *validator.Validate
	translator ut.Translator
)

const (
	gtTag  = "gt"
	gtText = "{0} must be greater than {1}"
)

func instance() (*validator.Validate, ut.Translator) {
	once.Do(func() {
		english := en.New()
		uni := ut.New(english, english)
		translator, _ = uni.GetTranslator("en")

		validate = validator.New(validator.WithRequiredStructEnabled())
		_ = en_translations.RegisterDefaultTranslations(validate, translator)

		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})

		registerTranslation(validate, translator, gtTag, gtText)
	})
	return validate, translator
}

// registerTranslation overrides the message for tag.
func registerTranslation(v *validator.Validate, trans ut.Translator, tag, text string) {
	_ = v.RegisterTranslation(
		tag, trans,
		func(t ut.Translator) error { return t.Add(tag, text, true) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field(), fe.Param())
			return s
		},
	)
}

// Struct validates s against its `validate` tags. It returns nil or an *Error.
func Struct(s any) error {
	v, trans := instance()
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make([]model.Violation, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, model.Violation{Field: fe.Field(), Message: fe.Translate(trans)})
	}
	return &Error{Msg: "invalid " + strings.ToLower(reflect.Indirect(reflect.ValueOf(s)).Type().Name()), Fields: fields}
}
