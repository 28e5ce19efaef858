// Package validate implements the input rules applied to every create and
// update request: field formats and lengths via struct tags, plus the range
// checks that depend on request-time values such as the current year.
//
// All failures are returned as apperror.ValidationFailed naming the JSON field.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/sakif/yamdb/internal/apperror"
)

const (
	MaxUsernameLength = 150
	MaxEmailLength    = 254
	MaxNameLength     = 256
	MaxSlugLength     = 30

	MinYear  = -4000
	MinScore = 1
	MaxScore = 10
)

var (
	// Letters and digits from any script, plus _ . @ + -
	usernamePattern = regexp.MustCompile(`^[\p{L}\p{N}_.@+-]+$`)
	slugPattern     = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)
)

var v = newValidator()

func newValidator() *validator.Validate {
	val := validator.New(validator.WithRequiredStructEnabled())

	// Report JSON names so clients can map errors back to their payload.
	val.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	mustRegister(val, "username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
	mustRegister(val, "notme", func(fl validator.FieldLevel) bool {
		return !IsReservedUsername(fl.Field().String())
	})
	mustRegister(val, "slug", func(fl validator.FieldLevel) bool {
		return slugPattern.MatchString(fl.Field().String())
	})
	mustRegister(val, "role", func(fl validator.FieldLevel) bool {
		switch fl.Field().String() {
		case "user", "moderator", "admin":
			return true
		}
		return false
	})

	return val
}

func mustRegister(val *validator.Validate, tag string, fn validator.Func) {
	if err := val.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("validate: registering %q: %v", tag, err))
	}
}

// Struct checks s against its `validate` tags and returns the first failure.
func Struct(s any) error {
	return translate("", v.Struct(s))
}

// IsReservedUsername reports whether name is "me" in any letter case. The
// path /users/me/ would otherwise be ambiguous.
func IsReservedUsername(name string) bool {
	return strings.EqualFold(name, "me")
}

// Username applies the username format and the reserved-name rule.
func Username(name string) error {
	return field("username", name, fmt.Sprintf("required,max=%d,username,notme", MaxUsernameLength))
}

// Email applies the address format and length limit.
func Email(email string) error {
	return field("email", email, fmt.Sprintf("required,max=%d,email", MaxEmailLength))
}

// Name applies the length limit shared by category, genre and title names.
func Name(name string) error {
	return field("name", name, fmt.Sprintf("required,max=%d", MaxNameLength))
}

// Slug applies the slug format used by categories and genres.
func Slug(slug string) error {
	return field("slug", slug, fmt.Sprintf("required,max=%d,slug", MaxSlugLength))
}

// Year checks a title release year against [MinYear, currentYear]. The caller
// supplies currentYear so the bound follows the request clock.
func Year(year, currentYear int) error {
	if year < MinYear || year > currentYear {
		return apperror.ValidationFailed("year", "Check the year of title release!")
	}
	return nil
}

// Score checks a review score against [MinScore, MaxScore].
func Score(score int) error {
	if score < MinScore || score > MaxScore {
		return apperror.ValidationFailed("score",
			fmt.Sprintf("Acceptable evaluation are from %d to %d!", MinScore, MaxScore))
	}
	return nil
}

func field(name string, value any, tag string) error {
	return translate(name, v.Var(value, tag))
}

func translate(fieldName string, err error) error {
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		// InvalidValidationError: a programming mistake, not bad input.
		return fmt.Errorf("validate: %w", err)
	}

	fe := verrs[0]
	name := fieldName
	if name == "" {
		name = fe.Field()
	}
	return apperror.ValidationFailed(name, message(name, fe))
}

func message(name string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", name)
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be %s characters or less", name, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", name, fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s", name, fe.Param())
	case "email":
		return "Enter a valid email address."
	case "username":
		return "Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters."
	case "notme":
		return `Username "me" is not allowed.`
	case "slug":
		return "Enter a valid slug consisting of letters, numbers, underscores or hyphens."
	case "role":
		return "role must be one of: user, moderator, admin"
	case "dive":
		return fmt.Sprintf("%s is invalid", name)
	}
	return fmt.Sprintf("%s is invalid (%s)", name, fe.Tag())
}
