package shared

// Visibility selects which rows a read operation may see with respect to
// soft deletion. The zero value is the default scope: active rows only.
// Callers must opt in explicitly to see deleted rows.
type Visibility int

const (
	// VisibilityActive excludes soft-deleted rows (default).
	VisibilityActive Visibility = iota
	// VisibilityAll includes both active and soft-deleted rows.
	VisibilityAll
	// VisibilityDeleted returns soft-deleted rows only.
	VisibilityDeleted
)

// Filter represents query filter options
type Filter struct {
	Page       int
	PageSize   int
	OrderBy    string
	OrderDir   string
	Search     string
	Visibility Visibility
	Filters    map[string]interface{}
}

// DefaultFilter returns a filter with default values
func DefaultFilter() Filter {
	return Filter{
		Page:     1,
		PageSize: 20,
		OrderBy:  "created_at",
		OrderDir: "desc",
		Filters:  make(map[string]interface{}),
	}
}

// Paginated represents a paginated result
type Paginated[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}

// NewPaginated creates a new paginated result
func NewPaginated[T any](items []T, total int64, page, pageSize int) Paginated[T] {
	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}
	return Paginated[T]{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}
}
