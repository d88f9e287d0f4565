package validator

import (
	"fmt"
	"net/url"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var (
	emailPattern      = regexp.MustCompile(`^[A-Za-z0-9+_.-]+@(.+)$`)
	usernamePattern   = regexp.MustCompile(`^[a-zA-Z0-9_]{3,20}$`)
	namePattern       = regexp.MustCompile(`^[a-zA-Z\s'-]{2,50}$`)
	phonePattern      = regexp.MustCompile(`^\+?[1-9]\d{1,14}$`)
	phoneSeparators   = regexp.MustCompile(`[\s\-()]`)
	allowedURLSchemes = map[string]bool{"http": true, "https": true, "ftp": true, "file": true, "mailto": true}
)

// IsValidEmail checks the trimmed input against a permissive address pattern.
func IsValidEmail(email string) bool {
	return matches(emailPattern, email)
}

// IsValidUsername accepts 3-20 letters, digits or underscores.
func IsValidUsername(username string) bool {
	return matches(usernamePattern, username)
}

// IsValidName accepts 2-50 letters, spaces, apostrophes or hyphens.
func IsValidName(name string) bool {
	return matches(namePattern, name)
}

// IsValidPhone strips spaces, dashes and parentheses before matching.
func IsValidPhone(phone string) bool {
	if IsBlank(phone) {
		return false
	}
	return phonePattern.MatchString(phoneSeparators.ReplaceAllString(strings.TrimSpace(phone), ""))
}

func IsValidURL(raw string) bool {
	if IsBlank(raw) {
		return false
	}
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	return allowedURLSchemes[strings.ToLower(u.Scheme)]
}

func IsBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

type number interface {
	~int | ~int32 | ~int64 | ~float32 | ~float64
}

// InRange is inclusive on both bounds.
func InRange[T number](value, min, max T) bool {
	return value >= min && value <= max
}

func IsPositive[T number](value T) bool {
	return value > 0
}

func IsNotNegative[T number](value T) bool {
	return value >= 0
}

// IsStringLengthValid counts runes. A nil input is valid only when min <= 0.
func IsStringLengthValid(s *string, min, max int) bool {
	if s == nil {
		return min <= 0
	}
	n := len([]rune(*s))
	return n >= min && n <= max
}

func matches(p *regexp.Regexp, s string) bool {
	if IsBlank(s) {
		return false
	}
	return p.MatchString(strings.TrimSpace(s))
}

// ErrorResponse describes one failed struct field.
type ErrorResponse struct {
	FailedField string
	Tag         string
	Value       string
}

func (e ErrorResponse) String() string {
	if e.Value != "" {
		return fmt.Sprintf("%s failed %s=%s", e.FailedField, e.Tag, e.Value)
	}
	return fmt.Sprintf("%s failed %s", e.FailedField, e.Tag)
}

var validate = validator.New()

func init() {
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	// decimal.Decimal fields compare as float64 so gte/lte apply.
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})

	validate.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return IsValidUsername(fl.Field().String())
	})
	validate.RegisterValidation("personname", func(fl validator.FieldLevel) bool {
		return IsValidName(fl.Field().String())
	})
	validate.RegisterValidation("emailaddr", func(fl validator.FieldLevel) bool {
		return IsValidEmail(fl.Field().String())
	})
	validate.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return IsValidPhone(fl.Field().String())
	})
}

// ValidateStruct runs the validate tags of data and lists every failure.
func ValidateStruct(data interface{}) []*ErrorResponse {
	var errors []*ErrorResponse
	err := validate.Struct(data)
	if err != nil {
		validationErrors, ok := err.(validator.ValidationErrors)
		if !ok {
			return []*ErrorResponse{{FailedField: reflect.TypeOf(data).String(), Tag: "struct"}}
		}
		for _, err := range validationErrors {
			var element ErrorResponse
			element.FailedField = err.Field()
			element.Tag = err.Tag()
			element.Value = err.Param()
			errors = append(errors, &element)
		}
	}
	return errors
}

// Summary joins failures into one line for an error body.
func Summary(errs []*ErrorResponse) string {
	parts := make([]string, 0, len(errs))
	for _, e := range errs {
		parts = append(parts, e.String())
	}
	return "Validation failed: " + strings.Join(parts, "; ")
}
