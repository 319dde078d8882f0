package utils

import "github.com/microcosm-cc/bluemonday"

var profileSanitizer = bluemonday.StrictPolicy()

// SanitizeProfileField strips all HTML from user-supplied profile text
// (display name, bio) to prevent stored XSS.
func SanitizeProfileField(input string) string {
	return profileSanitizer.Sanitize(input)
}
