package repository

// Pagination bounds shared by every listing operation.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Page describes a 1-based pagination window.
type Page struct {
	Number int
	Size   int
}

// Normalize clamps the window to the documented bounds: page >= 1, size in
// [1, MaxPageSize], defaulting the size when unset.
func (p Page) Normalize() Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Size < 1 {
		p.Size = DefaultPageSize
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
	return p
}

// Offset is the row offset of the window's first item.
func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}

// TotalPages is ceil(total/size) for a normalized page size.
func TotalPages(total, size int) int {
	if total <= 0 || size <= 0 {
		return 0
	}
	return (total + size - 1) / size
}
