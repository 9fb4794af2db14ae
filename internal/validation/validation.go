// Package validation provides input validation helpers and middleware for the
// risk API.
package validation

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
)

// MaxRequestSize is the maximum request body size (1MB)
const MaxRequestSize = 1 << 20 // 1MB

// MaxMessageLength bounds a chat message.
const MaxMessageLength = 4000

var (
	// symbolRegex matches equity tickers such as AAPL or BRK.B
	symbolRegex = regexp.MustCompile(`^[A-Z]{1,5}(\.[A-Z]{1,2})?$`)
	// identRegex matches user ids, confirmation ids and ticket ids
	identRegex = regexp.MustCompile(`^[A-Za-z0-9_.-]{1,64}$`)
	// industryRegex matches industry names such as "technology" or "consumer staples"
	industryRegex = regexp.MustCompile(`^[A-Za-z][A-Za-z &-]{0,39}$`)
)

// RequestSizeMiddleware limits request body size
func RequestSizeMiddleware(maxSize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize)
		c.Next()
	}
}

// IsValidSymbol checks a ticker, case-insensitively.
func IsValidSymbol(s string) bool {
	return symbolRegex.MatchString(strings.ToUpper(s))
}

// IsValidIdent checks a user, confirmation or ticket id.
func IsValidIdent(s string) bool {
	return identRegex.MatchString(s)
}

// IsValidIndustry checks an industry name.
func IsValidIndustry(s string) bool {
	return industryRegex.MatchString(s)
}

// IsValidSubject checks an assessment subject: a ticker, an industry name
// or a portfolio id.
func IsValidSubject(s string) bool {
	return IsValidIdent(s) || IsValidIndustry(s)
}

// SanitizeString removes dangerous characters and limits length
func SanitizeString(s string, maxLen int) string {
	// Trim whitespace
	s = strings.TrimSpace(s)

	// Limit length
	if len(s) > maxLen {
		s = s[:maxLen]
	}

	// Remove null bytes
	s = strings.ReplaceAll(s, "\x00", "")

	return s
}

// SanitizeSymbol normalizes a ticker
func SanitizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}
	return e[0].Field + ": " + e[0].Message
}

// Validate validates a request and returns errors
func Validate(validators ...func() *ValidationError) ValidationErrors {
	var errors ValidationErrors
	for _, v := range validators {
		if err := v(); err != nil {
			errors = append(errors, *err)
		}
	}
	return errors
}

// Required checks if a field is non-empty
func Required(field, value string) func() *ValidationError {
	return func() *ValidationError {
		if strings.TrimSpace(value) == "" {
			return &ValidationError{Field: field, Message: "is required"}
		}
		return nil
	}
}

// ValidIdent checks an optional identifier field
func ValidIdent(field, value string) func() *ValidationError {
	return func() *ValidationError {
		if value == "" {
			return nil // Use Required for required fields
		}
		if !IsValidIdent(value) {
			return &ValidationError{Field: field, Message: "must be 1-64 letters, digits, '_', '.' or '-'"}
		}
		return nil
	}
}

// MaxLength checks if a field exceeds max length
func MaxLength(field, value string, max int) func() *ValidationError {
	return func() *ValidationError {
		if len(value) > max {
			return &ValidationError{Field: field, Message: "exceeds maximum length"}
		}
		return nil
	}
}

// MinLength checks that a field has at least min characters
func MinLength(field, value string, min int) func() *ValidationError {
	return func() *ValidationError {
		if utf8.RuneCountInString(strings.TrimSpace(value)) < min {
			return &ValidationError{Field: field, Message: fmt.Sprintf("must be at least %d characters", min)}
		}
		return nil
	}
}

// SymbolParamMiddleware rejects a malformed :symbol URL parameter early.
func SymbolParamMiddleware() gin.HandlerFunc {
	return paramMiddleware("symbol", IsValidSymbol, "invalid_symbol", "symbol must be a ticker such as AAPL or BRK.B")
}

// IndustryParamMiddleware rejects a malformed :industry URL parameter early.
func IndustryParamMiddleware() gin.HandlerFunc {
	return paramMiddleware("industry", IsValidIndustry, "invalid_industry", "industry must be a plain name such as 'technology'")
}

// IdentParamMiddleware validates the named identifier URL parameter.
func IdentParamMiddleware(name string) gin.HandlerFunc {
	return paramMiddleware(name, IsValidIdent, "invalid_"+name, name+" must be 1-64 letters, digits, '_', '.' or '-'")
}

// SubjectParamMiddleware validates the :subject URL parameter of the
// assessment history.
func SubjectParamMiddleware() gin.HandlerFunc {
	return paramMiddleware("subject", IsValidSubject, "invalid_subject", "subject must be a ticker, industry or portfolio id")
}

func paramMiddleware(name string, ok func(string) bool, code, message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		v := c.Param(name)
		if v != "" && !ok(v) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error":   code,
				"message": message,
			})
			return
		}
		c.Next()
	}
}
