package article

// NotDefined is the category assigned when a hit carries no recognised topic.
const NotDefined = "Not Defined"

// DefaultAllowedCategories is the closed set of categories the sheet tracks.
var DefaultAllowedCategories = []string{
	"Accounting",
	"Advertising",
	"AI at Work",
	"Artificial Intelligence",
	"Strategy",
	"Leadership",
	NotDefined,
}

// Categories is an immutable allow-list of category names.
type Categories struct {
	allowed map[string]struct{}
}

// NewCategories builds an allow-list from names.
func NewCategories(names []string) Categories {
	allowed := make(map[string]struct{}, len(names))
	for _, n := range names {
		allowed[n] = struct{}{}
	}
	return Categories{allowed: allowed}
}

// Allowed reports whether name is in the allow-list.
func (c Categories) Allowed(name string) bool {
	_, ok := c.allowed[name]
	return ok
}

// Normalize splits raw topic values into allowed and unknown categories,
// preserving input order. Non-string entries are dropped. allowed is never
// empty: it falls back to NotDefined.
func (c Categories) Normalize(topics []any) (allowed, unknown []string) {
	if len(topics) == 0 {
		return []string{NotDefined}, []string{}
	}
	allowed = []string{}
	unknown = []string{}
	for _, t := range topics {
		s, ok := t.(string)
		if !ok {
			continue
		}
		if c.Allowed(s) {
			allowed = append(allowed, s)
		} else {
			unknown = append(unknown, s)
		}
	}
	if len(allowed) == 0 {
		allowed = []string{NotDefined}
	}
	return allowed, unknown
}
