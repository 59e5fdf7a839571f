// Package model defines the core domain models used throughout the application.
package model

import "fmt"

// Card is a read-only reference to an entry in the card catalog.
type Card struct {
	MarketPrice *float64 `json:"market_price,omitempty" yaml:"market_price,omitempty"`
	ID          string   `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	SetCode     string   `json:"set_code" yaml:"set_code"`
	SetName     string   `json:"set_name" yaml:"set_name"`
	Number      string   `json:"number" yaml:"number"`
	Rarity      string   `json:"rarity" yaml:"rarity"`
	ImageURL    string   `json:"image_url" yaml:"image_url"`
}

// Label returns a short human readable identification such as "Pikachu · BS 58/102".
func (c Card) Label() string {
	switch {
	case c.SetCode != "" && c.Number != "":
		return fmt.Sprintf("%s · %s %s", c.Name, c.SetCode, c.Number)
	case c.SetCode != "":
		return fmt.Sprintf("%s · %s", c.Name, c.SetCode)
	default:
		return c.Name
	}
}

// CardCandidate is a ranked search result from the catalog.
type CardCandidate struct {
	Card  Card    `json:"card"`
	Score float64 `json:"score"`
}
