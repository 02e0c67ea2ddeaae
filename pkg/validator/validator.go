package validator

import (
	"fmt"
	"sync"
	"unicode"

	"github.com/go-playground/validator/v10"
)

type ErrorResponse struct {
	FailedField string `json:"failed_field"`
	Tag         string `json:"tag"`
	Value       string `json:"value"`
}

func (e *ErrorResponse) Error() string {
	return fmt.Sprintf("Field '%s' failed on tag '%s'", e.FailedField, e.Tag)
}

var (
	validate = validator.New()

	mu          sync.RWMutex
	permissionF = func(string) bool { return false }
)

func init() {
	validate.RegisterValidation("strong_password", func(fl validator.FieldLevel) bool {
		return StrongPassword(fl.Field().String())
	})
	validate.RegisterValidation("permission", func(fl validator.FieldLevel) bool {
		mu.RLock()
		defer mu.RUnlock()
		return permissionF(fl.Field().String())
	})
}

// SetPermissionLookup installs the membership check backing the "permission" tag.
func SetPermissionLookup(fn func(code string) bool) {
	mu.Lock()
	defer mu.Unlock()
	permissionF = fn
}

// StrongPassword requires at least one upper case letter, one lower case letter,
// one digit and one symbol.
func StrongPassword(pw string) bool {
	var upper, lower, digit, symbol bool
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			symbol = true
		}
	}
	return upper && lower && digit && symbol
}

func ValidateStruct(data interface{}) []*ErrorResponse {
	var errors []*ErrorResponse
	err := validate.Struct(data)
	if err != nil {
		verrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return []*ErrorResponse{{FailedField: "", Tag: "invalid", Value: err.Error()}}
		}
		for _, err := range verrs {
			var element ErrorResponse
			element.FailedField = err.StructNamespace()
			element.Tag = err.Tag()
			element.Value = err.Param()
			errors = append(errors, &element)
		}
	}
	return errors
}
