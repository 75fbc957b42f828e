package console

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/quartermaster-am/quartermaster/internal/api"
	"github.com/quartermaster-am/quartermaster/internal/audit"
	"github.com/quartermaster-am/quartermaster/internal/auth"
	"github.com/quartermaster-am/quartermaster/internal/identity"
	"github.com/quartermaster-am/quartermaster/internal/platform/httpx"
	"github.com/quartermaster-am/quartermaster/internal/shared"
	"github.com/quartermaster-am/quartermaster/internal/table"
	"github.com/quartermaster-am/quartermaster/internal/view"
)

// Recorder persists audit entries for console mutations and serves the
// recent-activity feed. Recording is best effort and never blocks the
// user action.
type Recorder interface {
	Record(ctx context.Context, actor, action, entity string, entityID int64, meta map[string]any) error
	Recent(ctx context.Context, limit int) ([]audit.Entry, error)
}

// Handler serves every resource screen plus the profile page.
type Handler struct {
	descriptors []*Descriptor
	bySlug      map[string]*Descriptor
	templates   *view.Engine
	csrf        *shared.CSRFManager
	auth        *auth.Service
	audit       Recorder
	svcs        *api.Services
	dirCache    *identity.DirectoryCache
	logger      *slog.Logger
}

func NewHandler(descriptors []*Descriptor, templates *view.Engine, csrf *shared.CSRFManager, authSvc *auth.Service, audit Recorder, svcs *api.Services, dirCache *identity.DirectoryCache, logger *slog.Logger) *Handler {
	bySlug := make(map[string]*Descriptor, len(descriptors))
	for _, d := range descriptors {
		bySlug[d.Slug] = d
	}
	return &Handler{
		descriptors: descriptors,
		bySlug:      bySlug,
		templates:   templates,
		csrf:        csrf,
		auth:        authSvc,
		audit:       audit,
		svcs:        svcs,
		dirCache:    dirCache,
		logger:      logger,
	}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.Landing)
	r.Get("/activity", h.Activity)
	r.Get("/profile", h.Profile)
	r.Post("/profile/dark-mode", h.ToggleDarkMode)
	r.Route("/resources/{slug}", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/new", h.NewForm)
		r.Post("/page", h.SetPage)
		r.Post("/select", h.ToggleSelect)
		r.Post("/select-all", h.ToggleSelectAll)
		r.Post("/bulk-delete", h.BulkDelete)
		r.Get("/{id}/edit", h.EditForm)
		r.Post("/{id}", h.Update)
		r.Post("/{id}/delete", h.Delete)
		r.Get("/{id}/details", h.HandoverDetails)
		r.Post("/{id}/details", h.AddHandoverDetail)
		r.Post("/{id}/details/{detailID}/delete", h.DeleteHandoverDetail)
	})
}

// NavItem feeds the sidebar partial.
type NavItem struct {
	Slug   string
	Title  string
	Active bool
}

type columnView struct {
	Header string
	Width  int
}

type rowView struct {
	ID       int64
	Selected bool
	Cells    []string
}

type listView struct {
	Nav            []NavItem
	Slug           string
	Title          string
	Singular       string
	HasDetails     bool
	Columns        []columnView
	Rows           []rowView
	Page           int
	PageCount      int
	Total          int
	SelectionCount int
	AllSelected    bool
	HasPrev        bool
	HasNext        bool
	LoadError      string
}

type fieldView struct {
	Name     string
	Label    string
	Kind     string
	Required bool
	Value    string
	Options  []Option
	Error    string
}

type formView struct {
	Nav      []NavItem
	Slug     string
	Title    string
	Singular string
	Mode     string
	ID       int64
	Fields   []fieldView
	Action   string
}

func (h *Handler) navFor(slug string) []NavItem {
	nav := make([]NavItem, 0, len(h.descriptors))
	for _, d := range h.descriptors {
		nav = append(nav, NavItem{Slug: d.Slug, Title: d.Title, Active: d.Slug == slug})
	}
	return nav
}

func (h *Handler) descriptor(w http.ResponseWriter, r *http.Request) *Descriptor {
	d, ok := h.bySlug[chi.URLParam(r, "slug")]
	if !ok {
		http.NotFound(w, r)
		return nil
	}
	return d
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, name, title string, data any) {
	sess := shared.SessionFromContext(r.Context())
	token, err := h.csrf.EnsureToken(r.Context(), sess)
	if err != nil {
		h.logger.Error("csrf token", "error", err)
	}
	err = h.templates.Render(w, name, view.TemplateData{
		Title:       title,
		CSRFToken:   token,
		Flash:       sess.PopFlash(),
		CurrentPath: r.URL.Path,
		DarkMode:    auth.DarkMode(sess),
		User:        h.auth.SessionOf(sess),
		Data:        data,
	})
	if err != nil {
		h.logger.Error("render page", "template", name, "error", err)
	}
}

func (h *Handler) actor(r *http.Request) string {
	sess := shared.SessionFromContext(r.Context())
	if auth := h.auth.SessionOf(sess); auth != nil {
		if auth.Email != "" {
			return auth.Email
		}
		return auth.AccountID
	}
	return "unknown"
}

func (h *Handler) record(ctx context.Context, actor, action string, d *Descriptor, entityID int64, meta map[string]any) {
	if h.audit == nil {
		return
	}
	if err := h.audit.Record(ctx, actor, action, d.Singular, entityID, meta); err != nil {
		h.logger.Warn("audit record failed", "action", action, "entity", d.Singular, "error", err)
	}
}

// Landing redirects to the first resource screen.
func (h *Handler) Landing(w http.ResponseWriter, r *http.Request) {
	if len(h.descriptors) == 0 {
		http.NotFound(w, r)
		return
	}
	http.Redirect(w, r, "/resources/"+h.descriptors[0].Slug, http.StatusSeeOther)
}

// Activity serves the recent audit trail as JSON for the activity feed.
func (h *Handler) Activity(w http.ResponseWriter, r *http.Request) {
	if h.audit == nil {
		httpx.JSON(w, http.StatusOK, []audit.Entry{})
		return
	}
	entries, err := h.audit.Recent(r.Context(), 50)
	if err != nil {
		h.logger.Error("load audit trail", "error", err)
		httpx.RespondError(w, fmt.Errorf("%w: audit trail", httpx.ErrUpstream))
		return
	}
	if entries == nil {
		entries = []audit.Entry{}
	}
	httpx.JSON(w, http.StatusOK, entries)
}

const (
	tableStateKeyPrefix    = "table_"
	tableRevisionKeyPrefix = "table_rev_"
)

// loadTable fetches the collection and rebuilds the per-session table.
// The revision token lives in the session and is rotated by every
// mutation, so selection and page survive navigation but reset the
// moment the dataset changes.
func (h *Handler) loadTable(ctx context.Context, sess *shared.Session, d *Descriptor) (*table.Table[map[string]any], error) {
	rows, err := d.Resource.List(ctx)
	if err != nil {
		return nil, err
	}
	t := table.New(d.Columns, d.IDOf, d.PageSize)
	var st table.State
	if ok, err := sess.GetJSON(tableStateKeyPrefix+d.Slug, &st); err == nil && ok {
		t.RestoreState(st)
	}
	rev := sess.Get(tableRevisionKeyPrefix + d.Slug)
	if rev == "" {
		rev = uuid.NewString()
		sess.Set(tableRevisionKeyPrefix+d.Slug, rev)
	}
	t.Replace(rows, rev)
	return t, nil
}

func (h *Handler) saveTable(sess *shared.Session, d *Descriptor, t *table.Table[map[string]any]) {
	if err := sess.SetJSON(tableStateKeyPrefix+d.Slug, t.StateSnapshot()); err != nil {
		h.logger.Warn("persist table state failed", "resource", d.Slug, "error", err)
	}
}

func (h *Handler) rotateRevision(sess *shared.Session, d *Descriptor) {
	sess.Set(tableRevisionKeyPrefix+d.Slug, uuid.NewString())
}

func (h *Handler) buildListView(d *Descriptor, t *table.Table[map[string]any], loadErr string) listView {
	lv := listView{
		Nav:        h.navFor(d.Slug),
		Slug:       d.Slug,
		Title:      d.Title,
		Singular:   d.Singular,
		HasDetails: d.Slug == "handovers",
		LoadError:  loadErr,
		Page:       1,
		PageCount:  1,
	}
	for _, c := range d.Columns {
		lv.Columns = append(lv.Columns, columnView{Header: c.Header, Width: c.Width})
	}
	if t == nil {
		return lv
	}
	lv.Page = t.Page()
	lv.PageCount = t.PageCount()
	lv.Total = t.Len()
	lv.SelectionCount = t.SelectionCount()
	lv.AllSelected = t.AllSelectedOnPage()
	lv.HasPrev = t.Page() > 1
	lv.HasNext = t.Page() < t.PageCount()
	for _, row := range t.PageRows() {
		id := d.IDOf(row)
		rv := rowView{ID: id, Selected: t.IsSelected(id)}
		for _, c := range d.Columns {
			rv.Cells = append(rv.Cells, c.Value(row))
		}
		lv.Rows = append(lv.Rows, rv)
	}
	return lv
}

// List renders the resource table.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	d := h.descriptor(w, r)
	if d == nil {
		return
	}
	sess := shared.SessionFromContext(r.Context())
	t, err := h.loadTable(r.Context(), sess, d)
	if err != nil {
		h.logger.Error("list fetch failed", "resource", d.Slug, "error", err)
		h.render(w, r, "pages/resource_list.html", d.Title, h.buildListView(d, nil, api.ErrorMessage(err)))
		return
	}
	h.saveTable(sess, d, t)
	h.render(w, r, "pages/resource_list.html", d.Title, h.buildListView(d, t, ""))
}

// SetPage moves the table to the requested page, clamped to range.
func (h *Handler) SetPage(w http.ResponseWriter, r *http.Request) {
	h.withTable(w, r, func(t *table.Table[map[string]any], form map[string]string) {
		switch form["direction"] {
		case "next":
			t.NextPage()
		case "prev":
			t.PrevPage()
		default:
			n, _ := strconv.Atoi(form["page"])
			t.SetPage(n)
		}
	})
}

// ToggleSelect flips selection of a single row.
func (h *Handler) ToggleSelect(w http.ResponseWriter, r *http.Request) {
	h.withTable(w, r, func(t *table.Table[map[string]any], form map[string]string) {
		id, _ := strconv.ParseInt(form["id"], 10, 64)
		t.Toggle(id)
	})
}

// ToggleSelectAll flips selection of every row on the current page.
func (h *Handler) ToggleSelectAll(w http.ResponseWriter, r *http.Request) {
	h.withTable(w, r, func(t *table.Table[map[string]any], form map[string]string) {
		t.ToggleSelectAllOnPage()
	})
}

// withTable runs a table state mutation and redirects back to the list.
func (h *Handler) withTable(w http.ResponseWriter, r *http.Request, fn func(*table.Table[map[string]any], map[string]string)) {
	d := h.descriptor(w, r)
	if d == nil {
		return
	}
	sess := shared.SessionFromContext(r.Context())
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	t, err := h.loadTable(r.Context(), sess, d)
	if err != nil {
		sess.AddFlash(shared.FlashMessage{Kind: "error", Message: api.ErrorMessage(err)})
		http.Redirect(w, r, "/resources/"+d.Slug, http.StatusSeeOther)
		return
	}
	form := make(map[string]string, len(r.PostForm))
	for k := range r.PostForm {
		form[k] = r.PostForm.Get(k)
	}
	fn(t, form)
	h.saveTable(sess, d, t)
	http.Redirect(w, r, "/resources/"+d.Slug, http.StatusSeeOther)
}

// BulkDelete removes the selected rows through the bulk endpoint.
func (h *Handler) BulkDelete(w http.ResponseWriter, r *http.Request) {
	d := h.descriptor(w, r)
	if d == nil {
		return
	}
	sess := shared.SessionFromContext(r.Context())
	t, err := h.loadTable(r.Context(), sess, d)
	if err != nil {
		sess.AddFlash(shared.FlashMessage{Kind: "error", Message: api.ErrorMessage(err)})
		http.Redirect(w, r, "/resources/"+d.Slug, http.StatusSeeOther)
		return
	}
	ids := t.SelectedIDs()
	n, err := t.BulkDelete(r.Context(), d.Resource.BulkDelete)
	if err != nil {
		h.saveTable(sess, d, t)
		sess.AddFlash(shared.FlashMessage{Kind: "error", Message: api.ErrorMessage(err)})
		http.Redirect(w, r, "/resources/"+d.Slug, http.StatusSeeOther)
		return
	}
	h.saveTable(sess, d, t)
	if n > 0 {
		h.rotateRevision(sess, d)
		h.record(r.Context(), h.actor(r), "bulk-delete", d, 0, map[string]any{"ids": ids, "count": n})
		sess.AddFlash(shared.FlashMessage{Kind: "success", Message: strconv.Itoa(n) + " " + d.Title + " deleted."})
	}
	http.Redirect(w, r, "/resources/"+d.Slug, http.StatusSeeOther)
}

// NewForm renders an empty creation form.
func (h *Handler) NewForm(w http.ResponseWriter, r *http.Request) {
	d := h.descriptor(w, r)
	if d == nil {
		return
	}
	fv := h.buildFormView(r.Context(), d, "new", 0, map[string]string{}, nil)
	h.render(w, r, "pages/resource_form.html", "New "+d.Singular, fv)
}

// Create validates the submission and posts it to the remote API.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	d := h.descriptor(w, r)
	if d == nil {
		return
	}
	sess := shared.SessionFromContext(r.Context())
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	payload, fieldErrs := parseForm(d, r.PostForm)
	if len(fieldErrs) > 0 {
		fv := h.buildFormView(r.Context(), d, "new", 0, submittedValues(d, r.PostForm), fieldErrs)
		h.render(w, r, "pages/resource_form.html", "New "+d.Singular, fv)
		return
	}
	created, err := d.Resource.Create(r.Context(), payload)
	if err != nil {
		sess.AddFlash(shared.FlashMessage{Kind: "error", Message: api.ErrorMessage(err)})
		fv := h.buildFormView(r.Context(), d, "new", 0, submittedValues(d, r.PostForm), nil)
		h.render(w, r, "pages/resource_form.html", "New "+d.Singular, fv)
		return
	}
	h.rotateRevision(sess, d)
	h.record(r.Context(), h.actor(r), "create", d, d.IDOf(created), payload)
	sess.AddFlash(shared.FlashMessage{Kind: "success", Message: "The " + d.Singular + " was created."})
	http.Redirect(w, r, "/resources/"+d.Slug, http.StatusSeeOther)
}

// EditForm renders the form pre-filled with the current row.
func (h *Handler) EditForm(w http.ResponseWriter, r *http.Request) {
	d := h.descriptor(w, r)
	if d == nil {
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	row, err := d.Resource.Get(r.Context(), id)
	if err != nil {
		sess := shared.SessionFromContext(r.Context())
		sess.AddFlash(shared.FlashMessage{Kind: "error", Message: api.ErrorMessage(err)})
		http.Redirect(w, r, "/resources/"+d.Slug, http.StatusSeeOther)
		return
	}
	fv := h.buildFormView(r.Context(), d, "edit", id, formValues(d, row), nil)
	h.render(w, r, "pages/resource_form.html", "Edit "+d.Singular, fv)
}

// Update validates the submission and puts it to the remote API.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	d := h.descriptor(w, r)
	if d == nil {
		return
	}
	sess := shared.SessionFromContext(r.Context())
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	payload, fieldErrs := parseForm(d, r.PostForm)
	if len(fieldErrs) > 0 {
		fv := h.buildFormView(r.Context(), d, "edit", id, submittedValues(d, r.PostForm), fieldErrs)
		h.render(w, r, "pages/resource_form.html", "Edit "+d.Singular, fv)
		return
	}
	payload[d.IDField] = id
	if _, err := d.Resource.Update(r.Context(), id, payload); err != nil {
		sess.AddFlash(shared.FlashMessage{Kind: "error", Message: api.ErrorMessage(err)})
		fv := h.buildFormView(r.Context(), d, "edit", id, submittedValues(d, r.PostForm), nil)
		h.render(w, r, "pages/resource_form.html", "Edit "+d.Singular, fv)
		return
	}
	h.rotateRevision(sess, d)
	h.record(r.Context(), h.actor(r), "update", d, id, payload)
	sess.AddFlash(shared.FlashMessage{Kind: "success", Message: "The " + d.Singular + " was updated."})
	http.Redirect(w, r, "/resources/"+d.Slug, http.StatusSeeOther)
}

// Delete removes a single row.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	d := h.descriptor(w, r)
	if d == nil {
		return
	}
	sess := shared.SessionFromContext(r.Context())
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	if err := d.Resource.Delete(r.Context(), id); err != nil {
		sess.AddFlash(shared.FlashMessage{Kind: "error", Message: api.ErrorMessage(err)})
	} else {
		h.rotateRevision(sess, d)
		h.record(r.Context(), h.actor(r), "delete", d, id, nil)
		sess.AddFlash(shared.FlashMessage{Kind: "success", Message: "The " + d.Singular + " was deleted."})
	}
	http.Redirect(w, r, "/resources/"+d.Slug, http.StatusSeeOther)
}

func (h *Handler) buildFormView(ctx context.Context, d *Descriptor, mode string, id int64, values map[string]string, fieldErrs map[string]string) formView {
	fv := formView{
		Nav:      h.navFor(d.Slug),
		Slug:     d.Slug,
		Title:    d.Title,
		Singular: d.Singular,
		Mode:     mode,
		ID:       id,
		Action:   "/resources/" + d.Slug,
	}
	if mode == "edit" {
		fv.Action = "/resources/" + d.Slug + "/" + strconv.FormatInt(id, 10)
	}
	for _, f := range d.Fields {
		fw := fieldView{
			Name:     f.Name,
			Label:    f.Label,
			Kind:     string(f.Kind),
			Required: f.Required,
			Value:    values[f.Name],
			Error:    fieldErrs[f.Name],
		}
		if f.Options != nil {
			opts, err := f.Options(ctx)
			if err != nil {
				h.logger.Warn("select options fetch failed", "field", f.Name, "error", err)
			}
			fw.Options = opts
		}
		fv.Fields = append(fv.Fields, fw)
	}
	return fv
}

func submittedValues(d *Descriptor, form map[string][]string) map[string]string {
	values := make(map[string]string, len(d.Fields))
	for _, f := range d.Fields {
		if vs := form[f.Name]; len(vs) > 0 {
			values[f.Name] = vs[0]
		}
	}
	return values
}
