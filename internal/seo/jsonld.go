package seo

import (
	"encoding/json"
)

// JSON marshals v to a compact JSON string. It returns an empty string on error.
func JSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// RestaurantData is the input for the Restaurant schema.
type RestaurantData struct {
	Name         string
	URL          string
	Image        string
	Telephone    string
	Address      string
	OpeningHours string
	SameAs       []string
	Language     string
}

// Restaurant returns a schema.org Restaurant payload.
func Restaurant(d RestaurantData) map[string]any {
	m := map[string]any{
		"@context": "https://schema.org",
		"@type":    "Restaurant",
		"name":     d.Name,
	}
	if d.URL != "" {
		m["url"] = d.URL
	}
	if d.Image != "" {
		m["image"] = d.Image
	}
	if d.Telephone != "" {
		m["telephone"] = d.Telephone
	}
	if d.Address != "" {
		m["address"] = map[string]any{
			"@type":          "PostalAddress",
			"streetAddress":  d.Address,
			"addressCountry": "JP",
		}
	}
	if d.OpeningHours != "" {
		m["openingHours"] = d.OpeningHours
	}
	if len(d.SameAs) > 0 {
		m["sameAs"] = d.SameAs
	}
	if d.Language != "" {
		m["inLanguage"] = d.Language
	}
	return m
}
