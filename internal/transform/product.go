package transform

import (
	"strings"

	"github.com/prudhivi99/designify-catalog/internal/models"
)

// Product maps a raw backend record onto the canonical product. It never
// fails: absent fields fall back to defaults. Features and how-to steps
// start empty; the details resource fills them.
func Product(raw models.RawProduct) models.Product {
	p := models.Product{
		ID:          productID(raw),
		Title:       string(raw.Title),
		Subtitle:    string(raw.Subtitle),
		Icon:        icon(string(raw.Icon)),
		Tag:         string(raw.Tag),
		Slug:        strings.TrimSpace(string(raw.Slug)),
		Description: string(raw.Description),
		Features:    []models.ProductFeature{},
		HowTo:       []models.ProductHowToStep{},
		VideoURL:    string(raw.VideoURL),
	}

	if raw.Image != nil {
		p.Image = ProcessImageURL(raw.Image)
	}
	if raw.DetailsID > 0 {
		p.DetailsID = int(raw.DetailsID)
	}

	return p
}

func Feature(raw models.RawFeature) models.ProductFeature {
	return models.ProductFeature{
		ID:          featureID(raw.MongoID, raw.ID),
		Title:       string(raw.Title),
		Description: string(raw.Description),
		Helps:       helps(raw.Helps),
		Image:       ProcessImageURL(raw.Image),
	}
}

func HowToStep(raw models.RawHowToStep) models.ProductHowToStep {
	return models.ProductHowToStep{
		ID:          featureID(raw.MongoID, raw.ID),
		Title:       string(raw.Title),
		Description: string(raw.Description),
		Image:       ProcessImageURL(raw.Image),
	}
}

// Features maps a raw feature list. The result is never nil.
func Features(raw []models.RawFeature) []models.ProductFeature {
	features := make([]models.ProductFeature, 0, len(raw))
	for _, f := range raw {
		features = append(features, Feature(f))
	}
	return features
}

// HowToSteps maps a raw how-to list. The result is never nil.
func HowToSteps(raw []models.RawHowToStep) []models.ProductHowToStep {
	steps := make([]models.ProductHowToStep, 0, len(raw))
	for _, s := range raw {
		steps = append(steps, HowToStep(s))
	}
	return steps
}

func productID(raw models.RawProduct) int {
	if id, ok := raw.ID.Int(); ok {
		return id
	}
	if id, ok := raw.MongoID.Int(); ok {
		return id
	}
	return 0
}

func featureID(mongoID, id models.FlexID) string {
	if mongoID != "" {
		return string(mongoID)
	}
	return string(id)
}

func icon(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return models.DefaultIcon
	}
	return name
}

func helps(raw models.FlexStrings) []string {
	if raw == nil {
		return []string{}
	}
	return []string(raw)
}
