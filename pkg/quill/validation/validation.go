// Package validation turns binding errors into per-field message lists.
package validation

import (
	"errors"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/mikepea/quill/pkg/quill/i18n"
	"golang.org/x/text/message"
)

// NonFieldErrors is the key for errors not tied to a single field
const NonFieldErrors = "non_field_errors"

// FieldErrors maps a field name to its error messages
type FieldErrors map[string][]string

// Add appends a message for field
func (fe FieldErrors) Add(field, msg string) {
	fe[field] = append(fe[field], msg)
}

// Has reports whether field has any errors
func (fe FieldErrors) Has(field string) bool {
	return len(fe[field]) > 0
}

// First returns the first message for field, or ""
func (fe FieldErrors) First(field string) string {
	if msgs := fe[field]; len(msgs) > 0 {
		return msgs[0]
	}
	return ""
}

var setupOnce sync.Once

// NotBlank is the tag rejecting strings that are empty once trimmed
const NotBlank = "notblank"

// Setup makes validator report fields by their json (or form) name and
// registers the notblank tag. Handlers binding notblank fields call it.
func Setup() {
	setupOnce.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			v.RegisterTagNameFunc(fieldName)
			if err := v.RegisterValidation(NotBlank, notBlank); err != nil {
				panic(err)
			}
		}
	})
}

func notBlank(fl validator.FieldLevel) bool {
	field := fl.Field()
	if field.Kind() != reflect.String {
		return true
	}
	return strings.TrimSpace(field.String()) != ""
}

func fieldName(fld reflect.StructField) string {
	for _, tag := range []string{"json", "form"} {
		name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return fld.Name
}

// FromError converts a binding error into field errors. Errors that are not
// validation failures are reported under NonFieldErrors.
func FromError(err error, p *message.Printer) FieldErrors {
	fe := FieldErrors{}
	if err == nil {
		return fe
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, e := range verrs {
			fe.Add(e.Field(), Message(e, p))
		}
		return fe
	}

	fe.Add(NonFieldErrors, err.Error())
	return fe
}

// Message renders a single validation failure
func Message(e validator.FieldError, p *message.Printer) string {
	switch e.Tag() {
	case "required", NotBlank:
		return p.Sprintf(i18n.MsgRequired)
	case "max":
		if n, err := strconv.Atoi(e.Param()); err == nil {
			return p.Sprintf(i18n.MsgMaxLength, n)
		}
	case "min":
		if n, err := strconv.Atoi(e.Param()); err == nil {
			return p.Sprintf(i18n.MsgMinLength, n)
		}
	case "email":
		return p.Sprintf(i18n.MsgInvalidEmail)
	case "alphanum":
		return p.Sprintf(i18n.MsgAlphanumeric)
	}
	return p.Sprintf(i18n.MsgInvalidValue)
}
