package domain

// SortDirection represents ordering direction for sortable fields.
type SortDirection string

const (
	SortDirectionAsc  SortDirection = "asc"
	SortDirectionDesc SortDirection = "desc"
)

// SortField enumerates fields a search result can be ordered by.
type SortField string

const (
	SortFieldCreatedAt SortField = "created_at"
	SortFieldUpdatedAt SortField = "updated_at"
	SortFieldID        SortField = "id"
	SortFieldVersion   SortField = "version"
	// SortFieldData orders by a caller-named data field; DataKey selects it.
	SortFieldData SortField = "data"
)

// Sort captures ordering preferences for entity searches.
type Sort struct {
	Field     SortField
	Direction SortDirection
	DataKey   string
}
