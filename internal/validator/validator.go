package validator

import (
	"fmt"
	"mime"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

var (
	emailRegex    = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)
	filenameRegex = regexp.MustCompile(`[^a-zA-Z0-9_-]`)
	allowedImages = map[string]bool{
		".jpg":  true,
		".jpeg": true,
		".png":  true,
		".gif":  true,
		".webp": true,
		".bmp":  true,
	}
	allowedImageTypes = map[string]bool{
		"image/jpeg": true,
		"image/png":  true,
		"image/gif":  true,
		"image/webp": true,
		"image/bmp":  true,
	}
)

const (
	maxPasswordLength = 128
	minPasswordLength = 8
	maxEmailLength    = 254
	minUsernameLength = 2
	maxUsernameLength = 64
)

func init() {
	validate = validator.New()
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

func (r ValidationResult) Message() string {
	msgs := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		msgs = append(msgs, e.Message)
	}
	return strings.Join(msgs, " ")
}

func Validate(s any) error {
	return validate.Struct(s)
}

func ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email is required")
	}
	if len(email) > maxEmailLength {
		return fmt.Errorf("email too long (max %d characters)", maxEmailLength)
	}
	if !emailRegex.MatchString(email) {
		return fmt.Errorf("please enter a valid email address")
	}
	return nil
}

func ValidatePassword(password string) error {
	if password == "" {
		return fmt.Errorf("password is required")
	}
	if len(password) < minPasswordLength {
		return fmt.Errorf("password must be at least %d characters long", minPasswordLength)
	}
	if len(password) > maxPasswordLength {
		return fmt.Errorf("password too long (max %d characters)", maxPasswordLength)
	}
	return nil
}

// ValidateUsername allows only characters that are safe inside a file name,
// since the reference image is stored under the username.
func ValidateUsername(username string) error {
	if username == "" {
		return fmt.Errorf("username is required")
	}
	if len(username) < minUsernameLength {
		return fmt.Errorf("username must be at least %d characters long", minUsernameLength)
	}
	if len(username) > maxUsernameLength {
		return fmt.Errorf("username too long (max %d characters)", maxUsernameLength)
	}
	if !usernameRegex.MatchString(username) {
		return fmt.Errorf("username may only contain letters, digits, '.', '_' and '-'")
	}
	return nil
}

func ValidateRegistration(username, email, password string) ValidationResult {
	result := ValidationResult{Valid: true, Errors: []ValidationError{}}

	if err := ValidateUsername(username); err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, ValidationError{Field: "username", Message: err.Error()})
	}

	if err := ValidateEmail(email); err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, ValidationError{Field: "email", Message: err.Error()})
	}

	if err := ValidatePassword(password); err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, ValidationError{Field: "password", Message: err.Error()})
	}

	return result
}

// ValidateImageUpload checks the declared name and content type of an uploaded face image.
func ValidateImageUpload(filename string, contentType string) error {
	ext := strings.ToLower(filepath.Ext(filename))

	if !allowedImages[ext] {
		return fmt.Errorf("file type not allowed, use: jpg, jpeg, png, gif, webp, bmp")
	}

	if !allowedImageTypes[contentType] {
		return fmt.Errorf("content type not allowed")
	}

	mimeType := mime.TypeByExtension(ext)
	if mimeType != "" && mimeType != contentType && !strings.HasPrefix(contentType, "image/") {
		return fmt.Errorf("extension does not match content type")
	}

	return nil
}

func SanitizeFilename(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	name := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))

	name = filenameRegex.ReplaceAllString(name, "_")

	if len(name) > 50 {
		name = name[:50]
	}

	return name + ext
}
