// Package validation checks form input before anything reaches the backend.
package validation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"lingopal/internal/models"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Title   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateLogin requires both credentials to be present
func ValidateLogin(username, password string) error {
	if strings.TrimSpace(username) == "" || strings.TrimSpace(password) == "" {
		return ValidationError{
			Field:   "credentials",
			Title:   "Missing Information",
			Message: "Please enter both username and password",
		}
	}
	return nil
}

// ValidateRegistration checks a new account's fields
func ValidateRegistration(username, email, password string) error {
	if err := ValidateUsername(username); err != nil {
		return err
	}
	if err := ValidateEmail(email); err != nil {
		return err
	}
	return ValidatePassword(password)
}

// ValidateUsername checks if a username is valid
func ValidateUsername(username string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return ValidationError{Field: "username", Title: "Username Required", Message: "username is required"}
	}
	if len(username) < 2 {
		return ValidationError{Field: "username", Title: "Invalid Username", Message: "username must be at least 2 characters"}
	}
	return nil
}

// ValidateEmail checks if an email address is valid
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ValidationError{Field: "email", Title: "Email Required", Message: "email is required"}
	}
	if !emailRegex.MatchString(email) {
		return ValidationError{Field: "email", Title: "Invalid Email", Message: "invalid email format"}
	}
	return nil
}

// ValidatePassword checks if a password meets requirements
func ValidatePassword(password string) error {
	if password == "" {
		return ValidationError{Field: "password", Title: "Password Required", Message: "password is required"}
	}
	if len(password) < 8 {
		return ValidationError{Field: "password", Title: "Weak Password", Message: "password must be at least 8 characters"}
	}
	return nil
}

// ValidateName checks a child's display name
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ValidationError{Field: "name", Title: "Name Required", Message: "Please enter a name for the child"}
	}
	return nil
}

// ValidateAge checks that age lies within the editable range
func ValidateAge(age int) error {
	if age < models.MinAge || age > models.MaxAge {
		return ValidationError{
			Field:   "age",
			Title:   "Invalid Age",
			Message: fmt.Sprintf("Age must be between %d and %d", models.MinAge, models.MaxAge),
		}
	}
	return nil
}

// ParseAge converts a form value into an age and validates it
func ParseAge(raw string) (int, error) {
	age, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, ValidateAge(0)
	}
	return age, ValidateAge(age)
}

// ValidateLanguage requires a native language to be chosen
func ValidateLanguage(language string) error {
	if strings.TrimSpace(language) == "" {
		return ValidationError{Field: "nativeLanguage", Title: "Language Required", Message: "Please select a native language"}
	}
	return nil
}

// ValidateProfile runs the checks in the order the form reports them
func ValidateProfile(d models.ChildDraft) error {
	if err := ValidateName(d.Name); err != nil {
		return err
	}
	if err := ValidateAge(d.Age); err != nil {
		return err
	}
	return ValidateLanguage(d.NativeLanguage)
}

// ValidatePatch checks only the fields a patch sets
func ValidatePatch(p models.ChildPatch) error {
	if p.Name != nil {
		if err := ValidateName(*p.Name); err != nil {
			return err
		}
	}
	if p.Age != nil {
		if err := ValidateAge(*p.Age); err != nil {
			return err
		}
	}
	if p.NativeLanguage != nil {
		if err := ValidateLanguage(*p.NativeLanguage); err != nil {
			return err
		}
	}
	return nil
}
