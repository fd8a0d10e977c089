package seo

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRestaurantJSON(t *testing.T) {
	raw := JSON(Restaurant(RestaurantData{
		Name:      "Naji la boule",
		Telephone: "03-6228-5803",
		Address:   "6-12-12 Ginza",
		SameAs:    []string{"https://instagram.com/najilaboule"},
		Language:  "en",
	}))

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &got))
	require.Equal(t, "Restaurant", got["@type"])
	require.Equal(t, "03-6228-5803", got["telephone"])
	require.Equal(t, "en", got["inLanguage"])
	addr, ok := got["address"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "PostalAddress", addr["@type"])
	_, hasURL := got["url"]
	require.False(t, hasURL)
}

func TestOGLocale(t *testing.T) {
	require.Equal(t, "ja_JP", OGLocale("ja"))
	require.Equal(t, "fr", OGLocale("fr"))
}
