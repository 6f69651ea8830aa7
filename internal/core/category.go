package core

import "strings"

// Categories are registry-validated rather than free-form strings so a typo
// cannot silently fragment the aggregates.
var categories = map[string]struct{}{
	"housing":        {},
	"groceries":      {},
	"transport":      {},
	"health":         {},
	"dining":         {},
	"travel":         {},
	"entertainment":  {},
	"clothing":       {},
	"gifts":          {},
	"salary":         {},
	"reimbursement":  {},
	"fees":           {},
	"other":          {},
	CategoryTransfer: {},
}

// KnownCategory reports whether name is registered.
func KnownCategory(name string) bool {
	_, ok := categories[strings.ToLower(strings.TrimSpace(name))]
	return ok
}

// RegisterCategory adds a category to the registry. Registration is expected
// at startup, before transactions are captured.
func RegisterCategory(name string) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name != "" {
		categories[name] = struct{}{}
	}
}

// CategoryNames returns the registered categories, unordered.
func CategoryNames() []string {
	out := make([]string, 0, len(categories))
	for name := range categories {
		out = append(out, name)
	}
	return out
}
