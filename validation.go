package portal

import (
	"regexp"
	"strings"
	"unicode/utf8"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	goerrors "github.com/goliatone/go-errors"
)

const (
	FieldName            = "name"
	FieldEmail           = "email"
	FieldPassword        = "password"
	FieldConfirmPassword = "confirmPassword"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

func nameRules() []validation.Rule {
	return []validation.Rule{
		trimmedRequired("validation_name_required", "Name is required"),
		trimmedLength("validation_name_too_short", "Name must be at least 2 characters", 2, 0),
		trimmedLength("validation_name_too_long", "Name must be less than 100 characters", 0, 100),
	}
}

func emailRules() []validation.Rule {
	return []validation.Rule{
		trimmedRequired("validation_email_required", "Email is required"),
		validation.Match(emailPattern).Error("Please enter a valid email address"),
	}
}

func passwordRules() []validation.Rule {
	return []validation.Rule{
		validation.Required.Error("Password is required"),
		validation.RuneLength(8, 0).Error("Password must be at least 8 characters"),
		validation.RuneLength(0, 100).Error("Password must be less than 100 characters"),
	}
}

func confirmPasswordRules(password string) []validation.Rule {
	return []validation.Rule{
		validation.Required.Error("Please confirm your password"),
		validation.By(ValidateStringEquals(password, "Passwords do not match")),
	}
}

// LoginForm is the payload of the login page
type LoginForm struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

func (f LoginForm) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.Email, emailRules()...),
		validation.Field(&f.Password, passwordRules()...),
	)
}

// ValidateField returns the first failing message for field, empty when valid
func (f LoginForm) ValidateField(field string) string {
	switch field {
	case FieldEmail:
		return firstError(f.Email, emailRules()...)
	case FieldPassword:
		return firstError(f.Password, passwordRules()...)
	default:
		return ""
	}
}

// RegisterForm is the payload of the registration page
type RegisterForm struct {
	Name            string `form:"name" json:"name"`
	Email           string `form:"email" json:"email"`
	Password        string `form:"password" json:"password"`
	ConfirmPassword string `form:"confirmPassword" json:"confirmPassword"`
}

func (f RegisterForm) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.Name, nameRules()...),
		validation.Field(&f.Email, emailRules()...),
		validation.Field(&f.Password, passwordRules()...),
		validation.Field(&f.ConfirmPassword, confirmPasswordRules(f.Password)...),
	)
}

// ValidateField returns the first failing message for field, empty when valid
func (f RegisterForm) ValidateField(field string) string {
	switch field {
	case FieldName:
		return firstError(f.Name, nameRules()...)
	case FieldEmail:
		return firstError(f.Email, emailRules()...)
	case FieldPassword:
		return firstError(f.Password, passwordRules()...)
	case FieldConfirmPassword:
		return firstError(f.ConfirmPassword, confirmPasswordRules(f.Password)...)
	default:
		return ""
	}
}

// FieldErrors flattens a validation error into field -> message
func FieldErrors(err error) map[string]string {
	if err == nil {
		return map[string]string{}
	}
	return goerrors.FromOzzoValidation(err, "form has validation errors").ValidationMap()
}

// ValidateStringEquals will check that both values match
func ValidateStringEquals(str, message string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != str {
			return validation.NewError("validation_not_equal", message)
		}
		return nil
	}
}

func trimmedRequired(code, message string) validation.Rule {
	return validation.By(func(value any) error {
		s, _ := value.(string)
		if strings.TrimSpace(s) == "" {
			return validation.NewError(code, message)
		}
		return nil
	})
}

// trimmedLength counts runes after trimming, 0 disables a bound
func trimmedLength(code, message string, min, max int) validation.Rule {
	return validation.By(func(value any) error {
		s, _ := value.(string)
		n := utf8.RuneCountInString(strings.TrimSpace(s))
		if n == 0 {
			return nil
		}
		if (min > 0 && n < min) || (max > 0 && n > max) {
			return validation.NewError(code, message)
		}
		return nil
	})
}

func firstError(value string, rules ...validation.Rule) string {
	if err := validation.Validate(value, rules...); err != nil {
		return err.Error()
	}
	return ""
}
