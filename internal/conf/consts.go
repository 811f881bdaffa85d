package conf

// Built-in selection domains. Additional domains can be configured, these two
// are what the default configuration ships with.
const (
	DomainLanguage = "language"
	DomainService  = "service"
)

// Reselect policies controlling what happens when an identity selects an
// entity it has already selected.
const (
	// ReselectAppend always inserts a new selection row, preserving history.
	ReselectAppend = "append"
	// ReselectRefresh updates the timestamp of the existing row instead of
	// inserting a duplicate.
	ReselectRefresh = "refresh"
)
