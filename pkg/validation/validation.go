package validation

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var (
	// StreamIDRegex validates stream ID format
	StreamIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

	// ConnectionIDRegex validates connection ID format. Server-assigned IDs
	// are UUIDs but clients echo them back, so hex and dashes are enough.
	ConnectionIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
)

// ValidateStreamID validates stream ID
func ValidateStreamID(streamID string) error {
	if streamID == "" {
		return fmt.Errorf("stream ID is required")
	}
	if len(streamID) > 100 {
		return fmt.Errorf("stream ID is too long (max 100 characters)")
	}
	if !StreamIDRegex.MatchString(streamID) {
		return fmt.Errorf("invalid stream ID format")
	}
	return nil
}

// ValidateConnectionID validates connection ID
func ValidateConnectionID(connID string) error {
	if connID == "" {
		return fmt.Errorf("connection ID is required")
	}
	if len(connID) > 100 {
		return fmt.Errorf("connection ID is too long (max 100 characters)")
	}
	if !ConnectionIDRegex.MatchString(connID) {
		return fmt.Errorf("invalid connection ID format")
	}
	return nil
}

// ValidateRole validates a join role
func ValidateRole(role string) error {
	if role != "broadcaster" && role != "viewer" {
		return fmt.Errorf("invalid role (must be broadcaster or viewer)")
	}
	return nil
}

// ValidateURL validates URL format
func ValidateURL(urlStr string) error {
	if urlStr == "" {
		return fmt.Errorf("URL is required")
	}
	u, err := url.Parse(urlStr)
	if err != nil {
		return fmt.Errorf("invalid URL format: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" && u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("invalid URL scheme (must be http, https, ws, or wss)")
	}
	if u.Host == "" {
		return fmt.Errorf("URL must have a host")
	}
	return nil
}

// ValidateNonEmptyString validates that string is not empty after trimming
func ValidateNonEmptyString(s, fieldName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%s is required", fieldName)
	}
	return nil
}
