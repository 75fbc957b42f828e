// Package table implements the shared data-table behaviour: client-side
// pagination over a fully fetched row set, row selection keyed by a
// configurable identifier, and bulk-delete orchestration.
package table

import "context"

// DefaultPageSize is used when a non-positive page size is supplied.
const DefaultPageSize = 10

// Column describes one rendered column: a header, a minimum pixel width
// and a value accessor supplied by the caller.
type Column[T any] struct {
	Header string
	Width  int
	Value  func(T) string
}

// State is the serializable portion of a table, persisted between requests.
type State struct {
	Page     int     `json:"page"`
	Selected []int64 `json:"selected"`
	Revision string  `json:"revision"`
}

// Table paginates and tracks selection over a row set. Selection is scoped
// to one dataset revision: replacing the rows with a new revision clears it,
// so stale identifiers can never survive an unrelated reload.
type Table[T any] struct {
	columns  []Column[T]
	rows     []T
	id       func(T) int64
	pageSize int
	page     int
	revision string
	selected map[int64]struct{}
	order    []int64
}

// New constructs an empty table.
func New[T any](columns []Column[T], id func(T) int64, pageSize int) *Table[T] {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Table[T]{
		columns:  columns,
		id:       id,
		pageSize: pageSize,
		page:     1,
		selected: make(map[int64]struct{}),
	}
}

// Replace installs a freshly fetched row set. A revision change resets the
// page to 1 and clears the selection, even when row identifiers coincide
// with the previous dataset.
func (t *Table[T]) Replace(rows []T, revision string) {
	t.rows = rows
	if revision != t.revision {
		t.revision = revision
		t.page = 1
		t.selected = make(map[int64]struct{})
		t.order = nil
	}
	t.page = clamp(t.page, 1, t.PageCount())
}

// Columns returns the column descriptors.
func (t *Table[T]) Columns() []Column[T] {
	return t.columns
}

// Rows returns the full row set.
func (t *Table[T]) Rows() []T {
	return t.rows
}

// Len returns the total row count.
func (t *Table[T]) Len() int {
	return len(t.rows)
}

// Revision returns the current dataset revision token.
func (t *Table[T]) Revision() string {
	return t.revision
}

// PageSize returns the configured page size.
func (t *Table[T]) PageSize() int {
	return t.pageSize
}

// PageCount returns max(1, ceil(len(rows)/pageSize)).
func (t *Table[T]) PageCount() int {
	pages := (len(t.rows) + t.pageSize - 1) / t.pageSize
	if pages < 1 {
		return 1
	}
	return pages
}

// Page returns the current page, always within [1, PageCount].
func (t *Table[T]) Page() int {
	return t.page
}

// SetPage moves to page n, clamped to [1, PageCount]. No wraparound.
func (t *Table[T]) SetPage(n int) {
	t.page = clamp(n, 1, t.PageCount())
}

// NextPage advances one page, clamped at the last page.
func (t *Table[T]) NextPage() {
	t.SetPage(t.page + 1)
}

// PrevPage steps back one page, clamped at the first page.
func (t *Table[T]) PrevPage() {
	t.SetPage(t.page - 1)
}

// PageRows returns the slice of rows on the current page.
func (t *Table[T]) PageRows() []T {
	start := (t.page - 1) * t.pageSize
	if start >= len(t.rows) {
		return nil
	}
	end := start + t.pageSize
	if end > len(t.rows) {
		end = len(t.rows)
	}
	return t.rows[start:end]
}

// Toggle flips the selection of one row identifier.
func (t *Table[T]) Toggle(id int64) {
	if _, ok := t.selected[id]; ok {
		t.unmark(id)
		return
	}
	t.mark(id)
}

// IsSelected reports whether the identifier is selected.
func (t *Table[T]) IsSelected(id int64) bool {
	_, ok := t.selected[id]
	return ok
}

// AllSelectedOnPage reports whether every row on the current page is
// selected. An empty page reports false.
func (t *Table[T]) AllSelectedOnPage() bool {
	rows := t.PageRows()
	if len(rows) == 0 {
		return false
	}
	for _, row := range rows {
		if !t.IsSelected(t.id(row)) {
			return false
		}
	}
	return true
}

// ToggleSelectAllOnPage selects every row of the current page, or deselects
// them all when they are already selected. Rows on other pages keep their
// selection either way.
func (t *Table[T]) ToggleSelectAllOnPage() {
	rows := t.PageRows()
	if t.AllSelectedOnPage() {
		for _, row := range rows {
			t.unmark(t.id(row))
		}
		return
	}
	for _, row := range rows {
		if !t.IsSelected(t.id(row)) {
			t.mark(t.id(row))
		}
	}
}

// SelectedIDs returns the selected identifiers in selection order.
func (t *Table[T]) SelectedIDs() []int64 {
	return append([]int64(nil), t.order...)
}

// SelectionCount returns the number of selected rows.
func (t *Table[T]) SelectionCount() int {
	return len(t.order)
}

// ClearSelection removes every selection.
func (t *Table[T]) ClearSelection() {
	t.selected = make(map[int64]struct{})
	t.order = nil
}

// BulkDelete invokes fn with the ordered selected identifiers. With an empty
// selection it is a no-op and fn is never called. On success the selection is
// cleared; on failure it is preserved so the user can retry, and the error is
// returned as-is. The count of deleted rows is reported.
func (t *Table[T]) BulkDelete(ctx context.Context, fn func(context.Context, []int64) error) (int, error) {
	ids := t.SelectedIDs()
	if len(ids) == 0 {
		return 0, nil
	}
	if err := fn(ctx, ids); err != nil {
		return 0, err
	}
	t.ClearSelection()
	return len(ids), nil
}

// StateSnapshot exports the serializable table state.
func (t *Table[T]) StateSnapshot() State {
	return State{Page: t.page, Selected: t.SelectedIDs(), Revision: t.revision}
}

// RestoreState re-applies persisted state. Call before Replace so a dataset
// revision change can still invalidate a stale selection.
func (t *Table[T]) RestoreState(s State) {
	t.revision = s.Revision
	t.page = s.Page
	if t.page < 1 {
		t.page = 1
	}
	t.selected = make(map[int64]struct{}, len(s.Selected))
	t.order = nil
	for _, id := range s.Selected {
		t.mark(id)
	}
}

func (t *Table[T]) mark(id int64) {
	if _, ok := t.selected[id]; ok {
		return
	}
	t.selected[id] = struct{}{}
	t.order = append(t.order, id)
}

func (t *Table[T]) unmark(id int64) {
	if _, ok := t.selected[id]; !ok {
		return
	}
	delete(t.selected, id)
	for i, v := range t.order {
		if v == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
