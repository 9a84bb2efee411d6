package users

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

// passwordSymbols are the special characters accepted by the password policy.
const passwordSymbols = "@$!%*?&"

type registerRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=16,password_policy"`
}

type verifyRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required,max=72"`
}

var fieldMessages = map[string]map[string]string{
	"email": {
		"required": "Email is required",
		"email":    "Please provide a valid email address",
	},
	"password": {
		"required":        "Password is required",
		"min":             "Password must be at least %s characters long",
		"max":             "Password must not exceed %s characters",
		"password_policy": "Password must contain at least one uppercase letter, one lowercase letter, one number, and one special character",
	},
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("password_policy", func(fl validator.FieldLevel) bool {
		return satisfiesPasswordPolicy(fl.Field().String())
	})
	return v
}

// satisfiesPasswordPolicy requires a lowercase letter, an uppercase letter, a
// digit and one of passwordSymbols.
func satisfiesPasswordPolicy(password string) bool {
	var lower, upper, digit, symbol bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(passwordSymbols, r):
			symbol = true
		}
	}
	return lower && upper && digit && symbol
}

// validationMessages converts validator errors into per-field messages.
func validationMessages(err error) map[string]string {
	out := make(map[string]string)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		out["body"] = "Invalid request body"
		return out
	}
	for _, fe := range verrs {
		field := fe.Field()
		if _, seen := out[field]; seen {
			continue
		}
		msg, ok := fieldMessages[field][fe.Tag()]
		switch {
		case !ok:
			msg = field + " is invalid"
		case fe.Param() != "":
			msg = fmt.Sprintf(msg, fe.Param())
		}
		out[field] = msg
	}
	return out
}
