package models

// Category groups facts by subject. Categories are replaced wholesale on
// sync; the slug is the stable join key used by facts.
type Category struct {
	ID    int    `json:"id" db:"id"`
	Name  string `json:"name" db:"name"`
	Slug  string `json:"slug" db:"slug"`
	Icon  string `json:"icon" db:"icon"`
	Color string `json:"color" db:"color"`
}
