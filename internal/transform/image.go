package transform

import "strings"

// PlaceholderImage stands in for a missing or unusable image field.
const PlaceholderImage = "/placeholder.svg"

const dataURIPrefix = "data:image/jpeg;base64,"

// base64 magic prefixes of JPEG, PNG and WEBP payloads
var base64ImagePrefixes = []string{"/9j/", "iVBOR", "UklGR"}

// ProcessImageURL turns an image field into something a page can use as an
// image source. Raw base64 payloads become data URIs, other strings are
// passed through and anything that is not a string yields the placeholder.
func ProcessImageURL(v any) string {
	s, ok := v.(string)
	if !ok {
		return PlaceholderImage
	}

	if IsBase64Image(s) {
		return dataURIPrefix + s
	}
	return s
}

// IsBase64Image reports whether s starts with a known base64 image prefix.
func IsBase64Image(s string) bool {
	for _, prefix := range base64ImagePrefixes {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}
