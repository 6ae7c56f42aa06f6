package validate

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/aumarche/aumarche/internal/apperr"
)

var (
	phonePattern = regexp.MustCompile(`^\+?\d{8,15}$`)
	codePattern  = regexp.MustCompile(`^\d{6}$`)

	once     sync.Once
	instance *validator.Validate
)

// Phone reports whether s is an international phone number: 8 to 15 digits
// with an optional leading +.
func Phone(s string) bool {
	return phonePattern.MatchString(s)
}

// OTPCode reports whether s is exactly six ASCII digits.
func OTPCode(s string) bool {
	return codePattern.MatchString(s)
}

func get() *validator.Validate {
	once.Do(func() {
		v := validator.New()
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
			return Phone(fl.Field().String())
		})
		_ = v.RegisterValidation("otp", func(fl validator.FieldLevel) bool {
			return OTPCode(fl.Field().String())
		})
		instance = v
	})
	return instance
}

// Struct validates s against its `validate` tags and returns a validation
// error naming the offending json fields.
func Struct(s any) error {
	err := get().Struct(s)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		fields := make([]string, 0, len(validationErrors))
		for _, fieldErr := range validationErrors {
			fields = append(fields, fieldErr.Field())
		}
		return apperr.Wrap(apperr.KindValidation, fmt.Sprintf("Champs invalides : %s", strings.Join(fields, ", ")), err)
	}
	return apperr.Wrap(apperr.KindValidation, apperr.MsgInvalidBody, err)
}
