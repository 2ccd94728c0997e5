package pricing

import "github.com/xraph/replay/types"

// Package is a purchasable credit bundle. Bonus points are granted on
// top of the base amount for larger bundles.
type Package struct {
	Slug   string       `json:"slug"`
	Name   string       `json:"name"`
	Points types.Points `json:"points"`
	Bonus  types.Points `json:"bonus"`
}

// Total returns the points credited when the package is redeemed.
func (p Package) Total() types.Points {
	return p.Points.Add(p.Bonus)
}

// FindPackage returns the package with the given slug, or false.
func FindPackage(packages []Package, slug string) (Package, bool) {
	for _, p := range packages {
		if p.Slug == slug {
			return p, true
		}
	}
	return Package{}, false
}

// DefaultPackages returns the built-in credit bundles.
func DefaultPackages() []Package {
	return []Package{
		{Slug: "starter", Name: "Starter", Points: 100, Bonus: 0},
		{Slug: "creator", Name: "Creator", Points: 500, Bonus: 50},
		{Slug: "studio", Name: "Studio", Points: 2000, Bonus: 400},
	}
}
