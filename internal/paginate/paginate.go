// Package paginate slices ordered job lists into fixed-size pages.
package paginate

const PageSize = 20

// TotalPages returns the number of pages for n items, never less than one.
func TotalPages(n, size int) int {
	if size <= 0 {
		size = PageSize
	}
	if n <= 0 {
		return 1
	}
	return (n + size - 1) / size
}

// Slice returns the 1-indexed page of items. Out-of-range pages are empty.
func Slice[T any](items []T, page, size int) []T {
	if size <= 0 {
		size = PageSize
	}
	if page < 1 {
		return nil
	}
	start := (page - 1) * size
	if start >= len(items) {
		return nil
	}
	end := start + size
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

// State is the derived pagination position over a list.
type State struct {
	Current int `json:"current_page"`
	Size    int `json:"page_size"`
	Total   int `json:"total_pages"`
}

// New returns the first page of a list of n items.
func New(n int) State {
	return State{Current: 1, Size: PageSize, Total: TotalPages(n, PageSize)}
}

// GoTo moves to page p. Requests outside [1, Total] are ignored.
func (s State) GoTo(p int) State {
	if p < 1 || p > s.Total {
		return s
	}
	s.Current = p
	return s
}

// Resize recomputes the page count for a list of n items. The current page
// is reset to 1 only when it no longer exists.
func (s State) Resize(n int) State {
	if s.Size <= 0 {
		s.Size = PageSize
	}
	s.Total = TotalPages(n, s.Size)
	if s.Current < 1 || s.Current > s.Total {
		s.Current = 1
	}
	return s
}
