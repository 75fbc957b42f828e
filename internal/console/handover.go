package console

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/quartermaster-am/quartermaster/internal/api"
	"github.com/quartermaster-am/quartermaster/internal/shared"
)

type detailRowView struct {
	ID        int64
	AssetID   int64
	Asset     string
	Quantity  int
	Condition string
	Remarks   string
}

type handoverDetailsView struct {
	Nav        []NavItem
	HandoverID int64
	Handover   map[string]any
	RoomName   string
	Date       string
	Rows       []detailRowView
	AssetNames map[int64]string
	Assets     []Option
	FieldErrs  map[string]string
}

// HandoverDetails renders the line items of one handover.
func (h *Handler) HandoverDetails(w http.ResponseWriter, r *http.Request) {
	d := h.descriptor(w, r)
	if d == nil || d.Slug != "handovers" {
		http.NotFound(w, r)
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	h.renderDetails(w, r, d, id, nil)
}

func (h *Handler) renderDetails(w http.ResponseWriter, r *http.Request, d *Descriptor, id int64, fieldErrs map[string]string) {
	sess := shared.SessionFromContext(r.Context())
	handover, err := d.Resource.Get(r.Context(), id)
	if err != nil {
		sess.AddFlash(shared.FlashMessage{Kind: "error", Message: api.ErrorMessage(err)})
		http.Redirect(w, r, "/resources/handovers", http.StatusSeeOther)
		return
	}
	details, err := h.svcs.Handovers.Details(r.Context(), id)
	if err != nil {
		sess.AddFlash(shared.FlashMessage{Kind: "error", Message: api.ErrorMessage(err)})
		http.Redirect(w, r, "/resources/handovers", http.StatusSeeOther)
		return
	}

	dv := handoverDetailsView{
		Nav:        h.navFor("handovers"),
		HandoverID: id,
		Handover:   handover,
		Date:       dateCell("handoverDate")(handover),
		AssetNames: h.assetNames(r),
		FieldErrs:  fieldErrs,
	}
	if roomID := int64Of(handover["roomID"]); roomID != 0 {
		if room, err := h.svcs.Rooms.Get(r.Context(), roomID); err == nil {
			dv.RoomName = room.RoomName
		}
	}
	for _, det := range details {
		dv.Rows = append(dv.Rows, detailRowView{
			ID:        det.HandoverDetailID,
			AssetID:   det.AssetID,
			Asset:     dv.AssetNames[det.AssetID],
			Quantity:  det.Quantity,
			Condition: det.ConditionAtHandover,
			Remarks:   det.Remarks,
		})
	}
	for aid, name := range dv.AssetNames {
		dv.Assets = append(dv.Assets, Option{Value: strconv.FormatInt(aid, 10), Label: name})
	}
	h.render(w, r, "pages/handover_details.html", "Handover details", dv)
}

func (h *Handler) assetNames(r *http.Request) map[int64]string {
	names := make(map[int64]string)
	assets, err := h.svcs.Assets.List(r.Context())
	if err != nil {
		h.logger.Warn("asset lookup failed", "error", err)
		return names
	}
	for _, a := range assets {
		names[a.AssetID] = a.AssetName
	}
	return names
}

// AddHandoverDetail appends a line item to a handover.
func (h *Handler) AddHandoverDetail(w http.ResponseWriter, r *http.Request) {
	d := h.descriptor(w, r)
	if d == nil || d.Slug != "handovers" {
		http.NotFound(w, r)
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

	fieldErrs := make(map[string]string)
	assetID, err := strconv.ParseInt(r.PostForm.Get("assetID"), 10, 64)
	if err != nil {
		fieldErrs["assetID"] = "Asset is required"
	}
	quantity, err := strconv.Atoi(r.PostForm.Get("quantity"))
	if err != nil || quantity < 1 {
		fieldErrs["quantity"] = "Quantity must be a positive number"
	}
	if len(fieldErrs) > 0 {
		h.renderDetails(w, r, d, id, fieldErrs)
		return
	}

	payload := map[string]any{
		"handoverID":          id,
		"assetID":             assetID,
		"quantity":            quantity,
		"conditionAtHandover": r.PostForm.Get("conditionAtHandover"),
		"remarks":             r.PostForm.Get("remarks"),
	}
	detail, err := h.svcs.Handovers.AddDetail(r.Context(), id, payload)
	if err != nil {
		sess.AddFlash(shared.FlashMessage{Kind: "error", Message: api.ErrorMessage(err)})
	} else {
		h.record(r.Context(), h.actor(r), "add-detail", d, id, map[string]any{"detailID": detail.HandoverDetailID, "assetID": assetID})
		sess.AddFlash(shared.FlashMessage{Kind: "success", Message: "The line item was added."})
	}
	http.Redirect(w, r, "/resources/handovers/"+strconv.FormatInt(id, 10)+"/details", http.StatusSeeOther)
}

// DeleteHandoverDetail removes one line item.
func (h *Handler) DeleteHandoverDetail(w http.ResponseWriter, r *http.Request) {
	d := h.descriptor(w, r)
	if d == nil || d.Slug != "handovers" {
		http.NotFound(w, r)
		return
	}
	sess := shared.SessionFromContext(r.Context())
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	detailID, err := strconv.ParseInt(chi.URLParam(r, "detailID"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	if err := h.svcs.Handovers.DeleteDetail(r.Context(), detailID); err != nil {
		sess.AddFlash(shared.FlashMessage{Kind: "error", Message: api.ErrorMessage(err)})
	} else {
		h.record(r.Context(), h.actor(r), "delete-detail", d, id, map[string]any{"detailID": detailID})
		sess.AddFlash(shared.FlashMessage{Kind: "success", Message: "The line item was removed."})
	}
	http.Redirect(w, r, "/resources/handovers/"+strconv.FormatInt(id, 10)+"/details", http.StatusSeeOther)
}
