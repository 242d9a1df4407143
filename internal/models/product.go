package models

import "strings"

// Product is the canonical product shape served to the page shell.
type Product struct {
	ID          int                `json:"id"`
	Title       string             `json:"title"`
	Subtitle    string             `json:"subtitle,omitempty"`
	Icon        string             `json:"icon"`
	Tag         string             `json:"tag,omitempty"`
	Slug        string             `json:"slug,omitempty"`
	Description string             `json:"description"`
	Features    []ProductFeature   `json:"features"`
	HowTo       []ProductHowToStep `json:"howto"`
	VideoURL    string             `json:"videoURL,omitempty"`
	Image       string             `json:"image,omitempty"`
	DetailsID   int                `json:"detailsId,omitempty"`
}

type ProductFeature struct {
	ID          string   `json:"id,omitempty"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Helps       []string `json:"helps"`
	Image       string   `json:"image"`
}

type ProductHowToStep struct {
	ID          string `json:"id,omitempty"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Image       string `json:"image"`
}

// HasDetails reports whether the product points at a details resource.
func (p Product) HasDetails() bool {
	return p.DetailsID > 0
}

// DefaultIcon is used when a product has no icon or an unknown one.
const DefaultIcon = "layers"

var knownIcons = map[string]bool{
	"zap":        true,
	"layers":     true,
	"users":      true,
	"grid":       true,
	"monitor":    true,
	"palette":    true,
	"smartphone": true,
}

// ResolveIcon maps an icon name onto the fixed icon set.
func ResolveIcon(name string) string {
	key := strings.ToLower(strings.TrimSpace(name))
	if knownIcons[key] {
		return key
	}
	return DefaultIcon
}
