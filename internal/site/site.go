// Package site holds the fixed facts about the restaurant and the catalogue
// of images and cards the page is built from.
package site

import "github.com/atimot/najilaboule/internal/i18n"

// Info is the restaurant's contact data. It is not translated.
type Info struct {
	Name          string
	Area          string
	Kana          string
	Tagline       string
	Phone         string
	PhoneLink     string
	Address       string
	GoogleMapsURL string
	InstagramURL  string
	OpeningHours  string // schema.org openingHours value
}

// Restaurant is the live site's contact data.
var Restaurant = Info{
	Name:          "Naji la boule",
	Area:          "GINZA",
	Kana:          "ナジラブール",
	Tagline:       "Riz et Soupe, et un peu d'alcool.",
	Phone:         "03-6228-5803",
	PhoneLink:     "tel:03-6228-5803",
	Address:       "〒104-0061 東京都中央区銀座6-4-13 浅黄ビル B1F",
	GoogleMapsURL: "https://maps.app.goo.gl/DXUyQGjYB79SN4mQ7",
	InstagramURL:  "https://instagram.com/najilaboule",
	OpeningHours:  "Mo-Fr 18:30-23:30",
}

// DotColor is the brand accent attached to a menu card.
type DotColor string

const (
	DotWhite  DotColor = "white"
	DotOrange DotColor = "orange"
	DotRed    DotColor = "red"
)

// MenuItem is one card of the menu carousel.
type MenuItem struct {
	ID       int
	Image    string
	NameKey  i18n.Key
	DescKey  i18n.Key
	DotColor DotColor
}

// MenuItems is the carousel content in display order.
var MenuItems = []MenuItem{
	{ID: 1, Image: "menu_01.jpg", NameKey: i18n.KeyMenu1Name, DescKey: i18n.KeyMenu1Desc, DotColor: DotWhite},
	{ID: 2, Image: "menu_02.jpg", NameKey: i18n.KeyMenu2Name, DescKey: i18n.KeyMenu2Desc, DotColor: DotOrange},
	{ID: 3, Image: "menu_03.jpg", NameKey: i18n.KeyMenu3Name, DescKey: i18n.KeyMenu3Desc, DotColor: DotRed},
}

// ExperienceItem is one image/text block of the experience section.
type ExperienceItem struct {
	ID       string
	Label    string
	TitleKey i18n.Key
	DescKey  i18n.Key
	Image    string
	ImageAlt string
	Reverse  bool
}

// Experience lists the experience blocks in display order.
var Experience = []ExperienceItem{
	{ID: "soupe", Label: "SOUPE", TitleKey: i18n.KeySoupeTitle, DescKey: i18n.KeySoupeDesc, Image: "soupe.jpg", ImageAlt: "Soup", Reverse: true},
	{ID: "mariage", Label: "MARIAGE", TitleKey: i18n.KeyMariageTitle, DescKey: i18n.KeyMariageDesc, Image: "mariage.jpg", ImageAlt: "Sake", Reverse: false},
}

// Images used outside the card lists.
var (
	HeroImage        = "hero.jpg"
	PhilosophyImages = []string{"philo_01.jpg", "philo_02.jpg", "philo_03.jpg"}
)
