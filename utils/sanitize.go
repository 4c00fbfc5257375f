package utils

import "github.com/microcosm-cc/bluemonday"

// Strict policy: user-supplied names end up inside parse_mode=HTML Telegram
// messages and email bodies, so every tag gets stripped.
var sanitizer = bluemonday.StrictPolicy()

// Sanitize strips HTML from user-supplied text to prevent markup injection.
func Sanitize(input string) string {
	return sanitizer.Sanitize(input)
}
