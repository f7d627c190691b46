package utils

import "github.com/microcosm-cc/bluemonday"

var strictPolicy = bluemonday.StrictPolicy()

// StripTags removes every HTML tag, leaving escaped text only.
func StripTags(input string) string {
	return strictPolicy.Sanitize(input)
}
