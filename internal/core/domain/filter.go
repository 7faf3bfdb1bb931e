package domain

// FilterSet is a conjunction of typed predicates applied to documents.
// A zero FilterSet matches every document.
//
// Filters are modelled as an explicit value rather than a query string so
// the lexical and vector indexers can build static filter bitmaps at
// index time.
type FilterSet struct {
	// Environment restricts results to one deployment stage. Empty means any.
	Environment Environment

	// Region restricts results to one deployment region. Empty means any.
	Region string

	// ExcludePII drops documents whose endpoints handle personal data.
	ExcludePII bool

	// WithinScopes, when non-empty, keeps only documents whose required
	// scopes are a subset of this set.
	WithinScopes []string
}

// IsZero returns true if no predicate is set.
func (f FilterSet) IsZero() bool {
	return f.Environment == "" && f.Region == "" && !f.ExcludePII && len(f.WithinScopes) == 0
}

// Matches reports whether the document satisfies every predicate.
func (f FilterSet) Matches(doc Document) bool {
	if f.Environment != "" && doc.Environment != f.Environment {
		return false
	}
	if f.Region != "" && doc.Region != f.Region {
		return false
	}
	if f.ExcludePII && doc.PIIFlag {
		return false
	}
	if len(f.WithinScopes) > 0 {
		allowed := make(map[string]bool, len(f.WithinScopes))
		for _, s := range f.WithinScopes {
			allowed[s] = true
		}
		for _, required := range doc.RequiredScopes {
			if !allowed[required] {
				return false
			}
		}
	}
	return true
}
