package pagination

import "fmt"

const (
	// DefaultPageSize is the number of match ids requested per page.
	DefaultPageSize = 20

	// MaxPageSize is the largest count match-v5 accepts.
	MaxPageSize = 100
)

// Window is one page request: Count ids starting at offset Start.
type Window struct {
	Start int
	Count int
}

// Plan returns the windows covering total ids with pages of pageSize.
// Offsets run 0, pageSize, 2*pageSize, ... while below total, each window
// asking for min(pageSize, total-start). A non-positive total yields no windows.
func Plan(total, pageSize int) []Window {
	if pageSize <= 0 || total <= 0 {
		return nil
	}

	windows := make([]Window, 0, (total+pageSize-1)/pageSize)
	for start := 0; start < total; start += pageSize {
		count := min(pageSize, total-start)
		if count <= 0 {
			break
		}
		windows = append(windows, Window{Start: start, Count: count})
	}
	return windows
}

// ValidatePageSize checks that size is a count the API accepts for paging.
func ValidatePageSize(size int) error {
	if size < 1 || size > MaxPageSize {
		return fmt.Errorf("page size must be between 1 and %d (got %d)", MaxPageSize, size)
	}
	return nil
}
