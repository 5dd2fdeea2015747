// Package intents classifies student transmissions against a closed catalog
// of communicative intents using deterministic keyword and pattern rules.
package intents

import "sort"

// Catalog is the closed set of intent ids the contract validator accepts.
type Catalog struct {
	ids map[string]struct{}
}

// NewCatalog builds a catalog from the provided intent ids.
func NewCatalog(ids ...string) Catalog {
	catalog := Catalog{ids: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		if id != "" {
			catalog.ids[id] = struct{}{}
		}
	}
	return catalog
}

// Contains reports whether id is a member of the catalog.
func (c Catalog) Contains(id string) bool {
	_, ok := c.ids[id]
	return ok
}

// IDs returns the catalog members in stable order.
func (c Catalog) IDs() []string {
	ids := make([]string, 0, len(c.ids))
	for id := range c.ids {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of catalog members.
func (c Catalog) Len() int { return len(c.ids) }
