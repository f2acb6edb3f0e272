// Package catalog holds the storefront's static product catalog. The data is
// loaded once at startup and never mutated, so a Catalog is safe for
// concurrent use without locking.
package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/patelpratyush/neomart-demo/internal/domain"
	apperrors "github.com/patelpratyush/neomart-demo/pkg/errors"
	"github.com/patelpratyush/neomart-demo/pkg/pagination"
	"github.com/patelpratyush/neomart-demo/pkg/slug"
)

//go:embed seed.json
var embeddedSeed []byte

type seedFile struct {
	Categories []domain.Category `json:"categories"`
	Corners    []domain.Corner   `json:"corners"`
	Products   []domain.Product  `json:"products"`
}

// Filter narrows a product listing. Zero-valued fields match everything.
type Filter struct {
	Category string
	Section  string
	Corner   string
	Source   domain.Source
	Dietary  domain.DietaryTag
}

func (f Filter) matches(p domain.Product) bool {
	if f.Category != "" && p.CategorySlug != f.Category {
		return false
	}
	if f.Section != "" && !strings.EqualFold(p.Section, f.Section) {
		return false
	}
	if f.Corner != "" && p.CornerSlug != f.Corner {
		return false
	}
	if f.Source != "" && p.Source != f.Source {
		return false
	}
	if f.Dietary != "" {
		found := false
		for _, tag := range p.DietaryTags {
			if tag == f.Dietary {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Catalog is the read-only product catalog.
type Catalog struct {
	products   []domain.Product
	byID       map[string]int
	categories []domain.Category
	bySlug     map[string]int
	corners    []domain.Corner
}

// Default returns the catalog built from the embedded seed.
func Default() (*Catalog, error) {
	return Parse(embeddedSeed)
}

// Load returns the catalog at path, or the embedded catalog when path is
// empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog %s: %w", path, err)
	}
	defer f.Close()
	return Read(f)
}

// Read decodes a catalog seed from r.
func Read(r io.Reader) (*Catalog, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a catalog seed. Category and corner slugs
// missing from the seed are derived from their names.
func Parse(data []byte) (*Catalog, error) {
	var seed seedFile
	if err := json.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return build(seed)
}

func build(seed seedFile) (*Catalog, error) {
	c := &Catalog{
		byID:   make(map[string]int, len(seed.Products)),
		bySlug: make(map[string]int, len(seed.Categories)),
	}

	for _, cat := range seed.Categories {
		if cat.Slug == "" {
			cat.Slug = slug.Generate(cat.Name)
		}
		if _, dup := c.bySlug[cat.Slug]; dup {
			return nil, fmt.Errorf("duplicate category slug %q", cat.Slug)
		}
		c.bySlug[cat.Slug] = len(c.categories)
		c.categories = append(c.categories, cat)
	}

	cornerSlugs := make(map[string]bool, len(seed.Corners))
	for _, corner := range seed.Corners {
		if corner.Slug == "" {
			corner.Slug = slug.Generate(corner.Name)
		}
		if _, ok := c.bySlug[corner.CategorySlug]; !ok {
			return nil, fmt.Errorf("corner %s: unknown category %q", corner.Slug, corner.CategorySlug)
		}
		if cornerSlugs[corner.Slug] {
			return nil, fmt.Errorf("duplicate corner slug %q", corner.Slug)
		}
		cornerSlugs[corner.Slug] = true
		c.corners = append(c.corners, corner)
	}

	for _, p := range seed.Products {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		if _, dup := c.byID[p.ID]; dup {
			return nil, fmt.Errorf("duplicate product id %q", p.ID)
		}
		if _, ok := c.bySlug[p.CategorySlug]; !ok {
			return nil, fmt.Errorf("product %s: unknown category %q", p.ID, p.CategorySlug)
		}
		if p.CornerSlug != "" && !cornerSlugs[p.CornerSlug] {
			return nil, fmt.Errorf("product %s: unknown corner %q", p.ID, p.CornerSlug)
		}
		c.byID[p.ID] = len(c.products)
		c.products = append(c.products, p)
	}

	for _, p := range c.products {
		for _, sub := range p.AISubstituteIDs {
			if _, ok := c.byID[sub]; !ok || sub == p.ID {
				return nil, fmt.Errorf("product %s: invalid substitute %q", p.ID, sub)
			}
		}
	}

	sort.SliceStable(c.products, func(i, j int) bool {
		a, b := c.products[i], c.products[j]
		if a.Rank != b.Rank {
			return a.Rank < b.Rank
		}
		return a.Name < b.Name
	})
	for i, p := range c.products {
		c.byID[p.ID] = i
	}

	return c, nil
}

// Len returns the number of products.
func (c *Catalog) Len() int {
	return len(c.products)
}

// Product returns the product with the given id.
func (c *Catalog) Product(id string) (domain.Product, error) {
	i, ok := c.byID[id]
	if !ok {
		return domain.Product{}, apperrors.NotFound("product", id)
	}
	return c.products[i], nil
}

// Products returns one page of the products matching f, ordered by rank and
// then name.
func (c *Catalog) Products(f Filter, page pagination.Params) pagination.Result[domain.Product] {
	matched := make([]domain.Product, 0)
	for _, p := range c.products {
		if f.matches(p) {
			matched = append(matched, p)
		}
	}
	return pagination.Apply(matched, page)
}

// Substitutes returns the suggested replacements for the product.
func (c *Catalog) Substitutes(id string) ([]domain.Product, error) {
	p, err := c.Product(id)
	if err != nil {
		return nil, err
	}
	subs := make([]domain.Product, 0, len(p.AISubstituteIDs))
	for _, sid := range p.AISubstituteIDs {
		subs = append(subs, c.products[c.byID[sid]])
	}
	return subs, nil
}

// Categories returns every category in seed order.
func (c *Catalog) Categories() []domain.Category {
	out := make([]domain.Category, len(c.categories))
	copy(out, c.categories)
	return out
}

// Category returns the category with the given slug.
func (c *Catalog) Category(categorySlug string) (domain.Category, error) {
	i, ok := c.bySlug[categorySlug]
	if !ok {
		return domain.Category{}, apperrors.NotFound("category", categorySlug)
	}
	return c.categories[i], nil
}

// Corners returns the corners inside the category.
func (c *Catalog) Corners(categorySlug string) ([]domain.Corner, error) {
	if _, err := c.Category(categorySlug); err != nil {
		return nil, err
	}
	out := make([]domain.Corner, 0)
	for _, corner := range c.corners {
		if corner.CategorySlug == categorySlug {
			out = append(out, corner)
		}
	}
	return out, nil
}
