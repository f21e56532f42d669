package domain

import "fmt"

// ValidateLimit guards recommendation result limits at the entry points.
func ValidateLimit(limit int) error {
	if limit < 1 {
		return fmt.Errorf("domain: limit %d: %w", limit, ErrInvalidLimit)
	}
	return nil
}
