package orm

// Page is one slice of a larger result set.
type Page[T any] struct {
	List       []T   `json:"list"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// NewPage assembles a Page; TotalPages is ceil(total/size).
func NewPage[T any](list []T, page, size int, total int64) Page[T] {
	if list == nil {
		list = []T{}
	}
	pages := 0
	if size > 0 {
		pages = int((total + int64(size) - 1) / int64(size))
	}
	return Page[T]{List: list, Page: page, PageSize: size, Total: total, TotalPages: pages}
}

// Paginate slices an in-memory list.  Used after post-filtering, where the
// database cannot count for us.
func Paginate[T any](all []T, page, size int) Page[T] {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = DefaultPageSize
	}
	start := (page - 1) * size
	if start > len(all) {
		start = len(all)
	}
	end := start + size
	if end > len(all) {
		end = len(all)
	}
	return NewPage(all[start:end], page, size, int64(len(all)))
}

// MapPage converts the list of p with fn, keeping the counters.
func MapPage[T, U any](p Page[T], fn func(T) U) Page[U] {
	out := make([]U, len(p.List))
	for i, v := range p.List {
		out[i] = fn(v)
	}
	return Page[U]{List: out, Page: p.Page, PageSize: p.PageSize, Total: p.Total, TotalPages: p.TotalPages}
}
