package validator

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	govalidator "github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/sevahub/sevahub-backend/internal/model"
)

// trans is the singleton English translator for validation errors.
var trans ut.Translator

var regNoPattern = regexp.MustCompile(`^[A-Z0-9]{6,20}$`)

// NormalizeRegNo trims and uppercases a registration number.
func NormalizeRegNo(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// ValidRegNo reports whether s is a campus registration number once normalised.
func ValidRegNo(s string) bool {
	return regNoPattern.MatchString(NormalizeRegNo(s))
}

// ValidDepartment reports whether d names one of the academic departments.
func ValidDepartment(d string) bool {
	for _, dep := range model.Departments {
		if string(dep) == d {
			return true
		}
	}
	return false
}

// Setup registers the validator with English translations on Gin's binding engine.
// Call once during application startup.
func Setup() {
	v, ok := binding.Validator.Engine().(*govalidator.Validate)
	if !ok {
		return
	}
	register(v)
}

func register(v *govalidator.Validate) {
	// Use JSON tag name for field names in error messages.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation("regno", func(fl govalidator.FieldLevel) bool {
		return ValidRegNo(fl.Field().String())
	})
	_ = v.RegisterValidation("department", func(fl govalidator.FieldLevel) bool {
		return ValidDepartment(fl.Field().String())
	})

	enLocale := en.New()
	uni := ut.New(enLocale, enLocale)
	trans, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(v, trans)

	registerTranslation(v, "regno", "{0} must be 6-20 letters or digits")
	registerTranslation(v, "department", "{0} must be one of CSE, ECE, EEE, MECH, CIVIL, IT")
}

func registerTranslation(v *govalidator.Validate, tag, text string) {
	_ = v.RegisterTranslation(tag, trans,
		func(ut ut.Translator) error { return ut.Add(tag, text, true) },
		func(ut ut.Translator, fe govalidator.FieldError) string {
			msg, _ := ut.T(tag, fe.Field())
			return msg
		},
	)
}

// TranslateErrors takes a binding/validation error and returns a map of
// field name → human-readable error message. If the error is not a
// validation error, it returns a single-key map with "detail".
func TranslateErrors(err error) map[string]string {
	fields := make(map[string]string)

	var ve govalidator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			if trans != nil {
				fields[fe.Field()] = fe.Translate(trans)
			} else {
				fields[fe.Field()] = fe.Error()
			}
		}
		return fields
	}

	// Not a validation error (e.g., JSON syntax error).
	fields["detail"] = err.Error()
	return fields
}

// Bind binds and validates the request body into dst.
// Returns nil on success or a translated field error map on failure.
func Bind(c *gin.Context, dst interface{}) map[string]string {
	if err := c.ShouldBindJSON(dst); err != nil {
		return TranslateErrors(err)
	}
	return nil
}
