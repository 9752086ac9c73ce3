package validation

import (
	"fmt"
	"regexp"
	"unicode"
)

var (
	nameRegex  = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	digitRegex = regexp.MustCompile(`[0-9]`)
)

// ValidatePassword checks if a password meets security requirements
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters long")
	}
	if len(password) > 72 {
		// bcrypt ignores everything past 72 bytes
		return fmt.Errorf("password must not exceed 72 characters")
	}

	var hasUpper, hasLower bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		}
	}
	if !hasUpper || !hasLower {
		return fmt.Errorf("password must mix uppercase and lowercase letters")
	}
	if !digitRegex.MatchString(password) {
		return fmt.Errorf("password must contain at least one digit")
	}
	return nil
}

// ValidateName checks a display name: 3-50 letters, digits, underscores or hyphens,
// not starting or ending with a separator.
func ValidateName(name string) error {
	if len(name) < 3 {
		return fmt.Errorf("name must be at least 3 characters long")
	}
	if len(name) > 50 {
		return fmt.Errorf("name must not exceed 50 characters")
	}
	if !nameRegex.MatchString(name) {
		return fmt.Errorf("name can only contain letters, numbers, underscores, and hyphens")
	}
	first, last := name[0], name[len(name)-1]
	if first == '_' || first == '-' || last == '_' || last == '-' {
		return fmt.Errorf("name cannot start or end with underscore or hyphen")
	}
	return nil
}

// ValidateEmail checks email format and length.
func ValidateEmail(email string) error {
	if len(email) > 254 {
		return fmt.Errorf("email must not exceed 254 characters")
	}
	if err := validate.Var(email, "required,email"); err != nil {
		return fmt.Errorf("invalid email format")
	}
	return nil
}
