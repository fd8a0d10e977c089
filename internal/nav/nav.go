package nav

import "strings"

// Item is a section of the one-page site reachable from the header.
type Item struct {
	Anchor string // section id, e.g. "philosophy"
	Label  string // shown as-is in both languages
}

// RenderedItem is the template view of an Item.
type RenderedItem struct {
	Href   string
	Label  string
	Active bool
}

// Main lists the header sections in page order.
var Main = []Item{
	{Anchor: "philosophy", Label: "Philosophy"},
	{Anchor: "menu", Label: "Menu"},
	{Anchor: "access", Label: "Access"},
}

// Build renders the header items, marking the one matching active (a section
// id or "#id" fragment).
func Build(active string) []RenderedItem {
	active = strings.TrimPrefix(strings.TrimSpace(active), "#")
	items := make([]RenderedItem, 0, len(Main))
	for _, it := range Main {
		items = append(items, RenderedItem{
			Href:   "#" + it.Anchor,
			Label:  it.Label,
			Active: it.Anchor == active,
		})
	}
	return items
}

// Known reports whether anchor names a header section.
func Known(anchor string) bool {
	for _, it := range Main {
		if it.Anchor == anchor {
			return true
		}
	}
	return false
}
