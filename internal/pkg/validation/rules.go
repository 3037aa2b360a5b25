package validation

import (
	"net/url"
	"regexp"
	"strings"
)

// Validation rule patterns
var (
	EmailPattern    = `^[^\s@]+@[^\s@]+\.[^\s@]+$`
	UsernamePattern = `^[a-zA-Z0-9_.\-]+$`
	PhonePattern    = `^\+?[0-9 ()\-]{7,20}$`
	// FilenamePattern guards media lookups against traversal
	FilenamePattern = `^[a-zA-Z0-9_\-.]+$`

	PasswordMinLength = 8
	UsernameMinLength = 3
	UsernameMaxLength = 50
	NameMaxLength     = 100

	// PasswordSpecialChars is the accepted special character set
	PasswordSpecialChars = "@$!%*?&#"
)

// CompiledPatterns caches compiled regex patterns
var CompiledPatterns = struct {
	Email    *regexp.Regexp
	Username *regexp.Regexp
	Phone    *regexp.Regexp
	Filename *regexp.Regexp
}{
	Email:    regexp.MustCompile(EmailPattern),
	Username: regexp.MustCompile(UsernamePattern),
	Phone:    regexp.MustCompile(PhonePattern),
	Filename: regexp.MustCompile(FilenamePattern),
}

// StringValidation is a small builder for single string rules
type StringValidation struct {
	Value    string
	MinLen   int
	MaxLen   int
	Required bool
	Pattern  *regexp.Regexp
}

// NewStringValidation creates a required string validation
func NewStringValidation(value string) *StringValidation {
	return &StringValidation{
		Value:    value,
		Required: true,
	}
}

// WithMinLength sets minimum length
func (v *StringValidation) WithMinLength(min int) *StringValidation {
	v.MinLen = min
	return v
}

// WithMaxLength sets maximum length
func (v *StringValidation) WithMaxLength(max int) *StringValidation {
	v.MaxLen = max
	return v
}

// WithPattern sets regex pattern
func (v *StringValidation) WithPattern(pattern *regexp.Regexp) *StringValidation {
	v.Pattern = pattern
	return v
}

// WithRequired sets if field is required
func (v *StringValidation) WithRequired(required bool) *StringValidation {
	v.Required = required
	return v
}

// Validate performs validation
func (v *StringValidation) Validate() bool {
	if v.Value == "" {
		return !v.Required
	}
	if v.MinLen > 0 && len(v.Value) < v.MinLen {
		return false
	}
	if v.MaxLen > 0 && len(v.Value) > v.MaxLen {
		return false
	}
	if v.Pattern != nil && !v.Pattern.MatchString(v.Value) {
		return false
	}
	return true
}

// IsStrongPassword requires lower, upper, digit and special characters,
// at least PasswordMinLength long, drawn only from letters, digits and PasswordSpecialChars
func IsStrongPassword(password string) bool {
	if len(password) < PasswordMinLength {
		return false
	}

	var hasLower, hasUpper, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= '0' && r <= '9':
			hasDigit = true
		case strings.ContainsRune(PasswordSpecialChars, r):
			hasSpecial = true
		default:
			return false
		}
	}
	return hasLower && hasUpper && hasDigit && hasSpecial
}

// IsValidEmail checks the loose address shape accepted at signup
func IsValidEmail(email string) bool {
	return NewStringValidation(email).WithPattern(CompiledPatterns.Email).Validate()
}

// IsValidUsername checks length and charset
func IsValidUsername(username string) bool {
	return NewStringValidation(username).
		WithMinLength(UsernameMinLength).
		WithMaxLength(UsernameMaxLength).
		WithPattern(CompiledPatterns.Username).
		Validate()
}

// IsValidPhone checks a permissive international phone shape
func IsValidPhone(phone string) bool {
	return NewStringValidation(phone).WithPattern(CompiledPatterns.Phone).Validate()
}

// IsSafeFilename accepts only plain names made of [A-Za-z0-9_.-], never "." or ".."
func IsSafeFilename(name string) bool {
	if name == "." || name == ".." {
		return false
	}
	return NewStringValidation(name).WithMaxLength(255).WithPattern(CompiledPatterns.Filename).Validate()
}

// IsHTTPURL reports whether raw is an absolute http or https URL
func IsHTTPURL(raw string) bool {
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
