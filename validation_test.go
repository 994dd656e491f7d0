package portal

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegisterForm_ValidateField(t *testing.T) {
	long := strings.Repeat("a", 101)

	tests := []struct {
		name  string
		form  RegisterForm
		field string
		want  string
	}{
		{name: "name required", form: RegisterForm{Name: ""}, field: FieldName, want: "Name is required"},
		{name: "name blank", form: RegisterForm{Name: "   "}, field: FieldName, want: "Name is required"},
		{name: "name too short after trim", form: RegisterForm{Name: " A "}, field: FieldName, want: "Name must be at least 2 characters"},
		{name: "name ok", form: RegisterForm{Name: "Al"}, field: FieldName, want: ""},
		{name: "name too long", form: RegisterForm{Name: long}, field: FieldName, want: "Name must be less than 100 characters"},
		{name: "name 100 runes", form: RegisterForm{Name: strings.Repeat("é", 100)}, field: FieldName, want: ""},
		{name: "email required", form: RegisterForm{Email: " "}, field: FieldEmail, want: "Email is required"},
		{name: "email invalid", form: RegisterForm{Email: "ada@example"}, field: FieldEmail, want: "Please enter a valid email address"},
		{name: "email untrimmed", form: RegisterForm{Email: " ada@example.com"}, field: FieldEmail, want: "Please enter a valid email address"},
		{name: "email ok", form: RegisterForm{Email: "ada@example.com"}, field: FieldEmail, want: ""},
		{name: "password required", form: RegisterForm{}, field: FieldPassword, want: "Password is required"},
		{name: "password short", form: RegisterForm{Password: "1234567"}, field: FieldPassword, want: "Password must be at least 8 characters"},
		{name: "password long", form: RegisterForm{Password: long}, field: FieldPassword, want: "Password must be less than 100 characters"},
		{name: "password ok", form: RegisterForm{Password: "12345678"}, field: FieldPassword, want: ""},
		{name: "confirm required", form: RegisterForm{Password: "12345678"}, field: FieldConfirmPassword, want: "Please confirm your password"},
		{name: "confirm mismatch", form: RegisterForm{Password: "12345678", ConfirmPassword: "12345679"}, field: FieldConfirmPassword, want: "Passwords do not match"},
		{name: "confirm ok", form: RegisterForm{Password: "12345678", ConfirmPassword: "12345678"}, field: FieldConfirmPassword, want: ""},
		{name: "unknown field", form: RegisterForm{}, field: "nickname", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.form.ValidateField(tt.field))
		})
	}
}

func TestLoginForm_ValidateField(t *testing.T) {
	form := LoginForm{Email: "nope", Password: "short"}

	assert.Equal(t, "Please enter a valid email address", form.ValidateField(FieldEmail))
	assert.Equal(t, "Password must be at least 8 characters", form.ValidateField(FieldPassword))
	assert.Empty(t, form.ValidateField(FieldName))
}

func TestRegisterForm_Validate(t *testing.T) {
	form := RegisterForm{
		Name:            "A",
		Email:           "bad",
		Password:        "12345678",
		ConfirmPassword: "different",
	}

	errs := FieldErrors(form.Validate())

	assert.Equal(t, map[string]string{
		FieldName:            "Name must be at least 2 characters",
		FieldEmail:           "Please enter a valid email address",
		FieldConfirmPassword: "Passwords do not match",
	}, errs)
}

func TestRegisterForm_ValidateOK(t *testing.T) {
	form := RegisterForm{
		Name:            "Ada Lovelace",
		Email:           "ada@example.com",
		Password:        "secret123",
		ConfirmPassword: "secret123",
	}

	assert.NoError(t, form.Validate())
	assert.Empty(t, FieldErrors(nil))
}

func TestLoginForm_Validate(t *testing.T) {
	errs := FieldErrors(LoginForm{}.Validate())

	assert.Equal(t, map[string]string{
		FieldEmail:    "Email is required",
		FieldPassword: "Password is required",
	}, errs)
}

func TestValidation_Examples(t *testing.T) {
	assert.NotEmpty(t, LoginForm{Email: "not-an-email"}.ValidateField(FieldEmail))
	assert.Empty(t, LoginForm{Email: "a@b.co"}.ValidateField(FieldEmail))
	assert.NotEmpty(t, LoginForm{Password: "short12"}.ValidateField(FieldPassword))
	assert.Empty(t, LoginForm{Password: "longenough"}.ValidateField(FieldPassword))
	assert.Equal(t, "Passwords do not match",
		RegisterForm{Password: "y", ConfirmPassword: "x"}.ValidateField(FieldConfirmPassword))
}
