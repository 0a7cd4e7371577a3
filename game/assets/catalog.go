package assets

import (
	"fmt"
	"sort"
	"strings"
)

// Theme selects the asset-name prefixes used by every category
type Theme string

const (
	ThemePastoral Theme = "pastoral"
	ThemeSpace    Theme = "space"
)

// ParseTheme accepts a theme name case-insensitively
func ParseTheme(s string) (Theme, error) {
	switch Theme(strings.ToLower(strings.TrimSpace(s))) {
	case ThemePastoral, "":
		return ThemePastoral, nil
	case ThemeSpace:
		return ThemeSpace, nil
	}
	return "", fmt.Errorf("unknown theme %q", s)
}

// Category groups interchangeable asset variants
type Category string

const (
	CategoryGround    Category = "ground"
	CategoryWaterTop  Category = "water_top"
	CategoryTree      Category = "tree"
	CategoryGrass     Category = "grass"
	CategoryTallGrass Category = "tall_grass"
	CategoryStone     Category = "stone"
	CategoryMushroom  Category = "mushroom"
	CategoryTower     Category = "tower"
	CategoryClara     Category = "clara"
	CategoryLeaf      Category = "leaf"
	CategoryGhost     Category = "ghost"
	CategoryWaterfall Category = "waterfall"
	CategoryIsland    Category = "island"
	CategoryNFO       Category = "nfo"
)

// AmbientCategories are drawn uniformly for every decorated cell
var AmbientCategories = []Category{CategoryGrass, CategoryTallGrass, CategoryStone}

// Family is the set of variants of one category in one theme. Fixed names a
// single asset with no numeric suffix.
type Family struct {
	Prefix string
	Count  int
	// Tiers is the number of usable variants at detail levels 1, 2 and 3
	Tiers [3]int
	Fixed string
}

// Key returns the asset key of variant n (1-based)
func (f Family) Key(n int) string {
	if f.Fixed != "" {
		return f.Fixed
	}
	return fmt.Sprintf("%s%d.glb", f.Prefix, n)
}

// Tier returns how many variants are usable at the given detail level
func (f Family) Tier(detail int) int {
	if f.Fixed != "" {
		return 1
	}
	detail = ClampDetail(detail)
	if n := f.Tiers[detail-1]; n > 0 && n <= f.Count {
		return n
	}
	return f.Count
}

// Keys lists every variant key of the family
func (f Family) Keys() []string {
	if f.Fixed != "" {
		return []string{f.Fixed}
	}
	keys := make([]string, 0, f.Count)
	for n := 1; n <= f.Count; n++ {
		keys = append(keys, f.Key(n))
	}
	return keys
}

// Catalog maps every theme and category to its asset family
type Catalog map[Theme]map[Category]Family

// DefaultCatalog returns the built-in asset catalog
func DefaultCatalog() Catalog {
	return Catalog{
		ThemePastoral: {
			CategoryGround:    {Prefix: "GrassTop", Count: 2, Tiers: [3]int{2, 2, 2}},
			CategoryWaterTop:  {Fixed: "WaterTop.glb"},
			CategoryTree:      {Prefix: "Tree", Count: 15, Tiers: [3]int{7, 12, 15}},
			CategoryGrass:     {Prefix: "GrassSet", Count: 5, Tiers: [3]int{2, 4, 5}},
			CategoryTallGrass: {Prefix: "TallGrass", Count: 5, Tiers: [3]int{2, 4, 5}},
			CategoryStone:     {Prefix: "Stones", Count: 2, Tiers: [3]int{1, 2, 2}},
			CategoryMushroom:  {Prefix: "Mushrooms", Count: 4, Tiers: [3]int{4, 4, 4}},
			CategoryTower:     {Prefix: "Tower", Count: 3, Tiers: [3]int{1, 2, 3}},
			CategoryClara:     {Fixed: "clara.glb"},
			CategoryLeaf:      {Prefix: "Leaf", Count: 3, Tiers: [3]int{1, 3, 3}},
			CategoryGhost:     {Prefix: "Ghost", Count: 1, Tiers: [3]int{1, 1, 1}},
			CategoryWaterfall: {Prefix: "Waterfall", Count: 1, Tiers: [3]int{1, 1, 1}},
			CategoryIsland:    {Fixed: "island.glb"},
			CategoryNFO:       {Prefix: "NFO", Count: 5, Tiers: [3]int{2, 4, 5}},
		},
		ThemeSpace: {
			CategoryGround:    {Prefix: "RockTop", Count: 2, Tiers: [3]int{2, 2, 2}},
			CategoryWaterTop:  {Fixed: "VoidTop.glb"},
			CategoryTree:      {Prefix: "Crystal", Count: 15, Tiers: [3]int{7, 12, 15}},
			CategoryGrass:     {Prefix: "SpaceRock", Count: 5, Tiers: [3]int{2, 4, 5}},
			CategoryTallGrass: {Prefix: "Antenna", Count: 5, Tiers: [3]int{2, 4, 5}},
			CategoryStone:     {Prefix: "Meteor", Count: 2, Tiers: [3]int{1, 2, 2}},
			CategoryMushroom:  {Prefix: "Pod", Count: 4, Tiers: [3]int{4, 4, 4}},
			CategoryTower:     {Prefix: "Beacon", Count: 3, Tiers: [3]int{1, 2, 3}},
			CategoryClara:     {Fixed: "clara.glb"},
			CategoryLeaf:      {Prefix: "Star", Count: 3, Tiers: [3]int{1, 3, 3}},
			CategoryGhost:     {Prefix: "Alien", Count: 1, Tiers: [3]int{1, 1, 1}},
			CategoryWaterfall: {Prefix: "Voidfall", Count: 1, Tiers: [3]int{1, 1, 1}},
			CategoryIsland:    {Fixed: "asteroid.glb"},
			CategoryNFO:       {Prefix: "NFO", Count: 5, Tiers: [3]int{2, 4, 5}},
		},
	}
}

// Family looks up the family of a category in a theme
func (c Catalog) Family(theme Theme, cat Category) (Family, error) {
	families, ok := c[theme]
	if !ok {
		return Family{}, fmt.Errorf("unknown theme %q", theme)
	}
	f, ok := families[cat]
	if !ok {
		return Family{}, fmt.Errorf("theme %q has no %s assets", theme, cat)
	}
	return f, nil
}

// Keys lists every asset key a theme may place, sorted and deduplicated
func (c Catalog) Keys(theme Theme) []string {
	seen := make(map[string]bool)
	var keys []string
	for _, f := range c[theme] {
		for _, k := range f.Keys() {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	sort.Strings(keys)
	return keys
}

// Contains reports whether key belongs to any theme
func (c Catalog) Contains(key string) bool {
	for theme := range c {
		for _, k := range c.Keys(theme) {
			if k == key {
				return true
			}
		}
	}
	return false
}

// ClampDetail forces a detail level into 1..3
func ClampDetail(detail int) int {
	switch {
	case detail < 1:
		return 1
	case detail > 3:
		return 3
	}
	return detail
}
