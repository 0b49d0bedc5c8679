package scan

import "fmt"

// Category identifies which catalog bucket an asset belongs to.
type Category string

const (
	CategoryActive   Category = "active"
	CategoryArchived Category = "archived"
	CategoryCustom   Category = "custom"
	CategoryPrebuilt Category = "prebuilt"
)

// Categories lists all known categories in store-directory order.
var Categories = []Category{CategoryActive, CategoryArchived, CategoryCustom, CategoryPrebuilt}

// LookupPrecedence is the search order for category-less lookups.
// Explicitly-activated and user-provided models win over bundled
// defaults; archived models are the fallback of last resort.
var LookupPrecedence = []Category{CategoryActive, CategoryCustom, CategoryPrebuilt, CategoryArchived}

// ParseCategory validates a category name.
func ParseCategory(s string) (Category, error) {
	for _, c := range Categories {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown category %q", s)
}
