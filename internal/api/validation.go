package api

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cast"

	sharedErrors "github.com/khanhnv2901/secakit/internal/shared/errors"
)

// maxFormBytes caps the body of non-upload form requests.
const maxFormBytes = 1 << 20

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("form")
	})
	return v
}

// ValidationError is a lightweight error used for 400 responses.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	if e.Field == "" {
		return "validation failed"
	}
	if e.Reason == "" {
		return e.Field + ": invalid"
	}
	return e.Field + ": " + e.Reason
}

func (e *ValidationError) Unwrap() error { return sharedErrors.ErrInvalidInput }

type portScanForm struct {
	Target string `form:"target" validate:"required,max=253"`
	Ports  string `form:"ports" validate:"required,max=2048"`
}

type hostForm struct {
	Target string `form:"target" validate:"required,max=253"`
}

type websiteForm struct {
	URL string `form:"url" validate:"required,max=2048"`
}

// validateForm runs struct validation and reports the first failing field.
func validateForm(form any) error {
	err := validate.Struct(form)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		switch fe.Tag() {
		case "required":
			return &ValidationError{Field: fe.Field(), Reason: "required"}
		case "max":
			return &ValidationError{Field: fe.Field(), Reason: "too long (max " + fe.Param() + ")"}
		}
		return &ValidationError{Field: fe.Field()}
	}
	return &ValidationError{Reason: err.Error()}
}

// parseForm reads an urlencoded or small multipart body.
func parseForm(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	var err error
	if isMultipart(r) {
		err = r.ParseMultipartForm(maxFormBytes)
	} else {
		err = r.ParseForm()
	}
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return err
		}
		return &ValidationError{Reason: "malformed form body"}
	}
	return nil
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}

func formString(r *http.Request, field string) string {
	return strings.TrimSpace(r.FormValue(field))
}

// formInt reads an optional integer field bounded to [min, max].
func formInt(value, field string, def, min, max int) (int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return def, nil
	}
	n, err := cast.ToIntE(value)
	if err != nil {
		return 0, &ValidationError{Field: field, Reason: "must be an integer"}
	}
	if err := validate.Var(n, fmt.Sprintf("min=%d,max=%d", min, max)); err != nil {
		return 0, &ValidationError{Field: field, Reason: fmt.Sprintf("must be between %d and %d", min, max)}
	}
	return n, nil
}
