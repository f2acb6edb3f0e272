package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Source identifies the upstream catalog a product is sold from.
type Source string

// Known vendor sources.
const (
	SourceNeoMart  Source = "neomart"
	SourcePatel    Source = "patel"
	SourceShopRite Source = "shoprite"
	SourceHMart    Source = "hmart"
	SourceLocal    Source = "local"
)

// Sources returns every known source in display order.
func Sources() []Source {
	return []Source{SourceNeoMart, SourcePatel, SourceShopRite, SourceHMart, SourceLocal}
}

// Valid reports whether s is one of the known sources.
func (s Source) Valid() bool {
	for _, known := range Sources() {
		if s == known {
			return true
		}
	}
	return false
}

// ParseSource converts a raw string into a Source.
func ParseSource(raw string) (Source, error) {
	s := Source(raw)
	if !s.Valid() {
		return "", fmt.Errorf("unknown source %q", raw)
	}
	return s, nil
}

// DietaryTag labels a product for dietary preferences.
type DietaryTag string

const (
	DietaryVeg        DietaryTag = "veg"
	DietaryVegan      DietaryTag = "vegan"
	DietaryHalal      DietaryTag = "halal"
	DietaryGlutenFree DietaryTag = "gluten-free"
	DietaryOrganic    DietaryTag = "organic"
)

// Valid reports whether t is a known dietary tag.
func (t DietaryTag) Valid() bool {
	switch t {
	case DietaryVeg, DietaryVegan, DietaryHalal, DietaryGlutenFree, DietaryOrganic:
		return true
	}
	return false
}

// Product is immutable catalog reference data. The cart copies it by value
// and never mutates it.
type Product struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	CategorySlug    string          `json:"category_slug"`
	Section         string          `json:"section"`
	Source          Source          `json:"source"`
	Price           decimal.Decimal `json:"price"`
	Unit            string          `json:"unit"`
	Rank            int             `json:"rank"`
	DietaryTags     []DietaryTag    `json:"dietary_tags,omitempty"`
	IsCornerItem    bool            `json:"is_corner_item"`
	CornerSlug      string          `json:"corner_slug,omitempty"`
	IsFrozen        bool            `json:"is_frozen,omitempty"`
	IsProduce       bool            `json:"is_produce,omitempty"`
	Description     string          `json:"description,omitempty"`
	AIPairingText   string          `json:"ai_pairing_text,omitempty"`
	AISubstituteIDs []string        `json:"ai_substitute_ids,omitempty"`
}

// Validate checks the invariants a catalog product must satisfy.
func (p Product) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("product id is required")
	}
	if p.Name == "" {
		return fmt.Errorf("product %s: name is required", p.ID)
	}
	if p.Price.IsNegative() {
		return fmt.Errorf("product %s: price must not be negative", p.ID)
	}
	if !p.Source.Valid() {
		return fmt.Errorf("product %s: unknown source %q", p.ID, p.Source)
	}
	for _, tag := range p.DietaryTags {
		if !tag.Valid() {
			return fmt.Errorf("product %s: unknown dietary tag %q", p.ID, tag)
		}
	}
	if p.IsCornerItem && p.CornerSlug == "" {
		return fmt.Errorf("product %s: corner item without corner slug", p.ID)
	}
	return nil
}

// Category groups products for browsing.
type Category struct {
	Slug     string   `json:"slug"`
	Name     string   `json:"name"`
	Icon     string   `json:"icon"`
	Sections []string `json:"sections"`
}

// Corner is a curated collection inside a category.
type Corner struct {
	Slug         string   `json:"slug"`
	Name         string   `json:"name"`
	CategorySlug string   `json:"category_slug"`
	Description  string   `json:"description"`
	Badge        string   `json:"badge"`
	Sections     []string `json:"sections"`
}
