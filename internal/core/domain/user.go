package domain

// UserContext carries the requesting principal's attributes used for
// permission-fit, geography, and historical-success scoring.
//
// It is constructed per request from an external identity source and is
// never persisted by the engine.
type UserContext struct {
	// GrantedScopes are the OAuth scopes the user holds.
	GrantedScopes []string

	// Region is the user's home region (e.g. "us", "eu").
	Region string

	// HistoricalSelections maps document ID to the number of times this
	// user (or their cohort) previously selected that document.
	HistoricalSelections map[string]int
}

// HasScope reports whether the user holds the given scope.
func (u UserContext) HasScope(scope string) bool {
	for _, s := range u.GrantedScopes {
		if s == scope {
			return true
		}
	}
	return false
}
