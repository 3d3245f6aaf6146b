package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"appliance-warranty-backend/internal/catalog"
	"appliance-warranty-backend/internal/model"
	"appliance-warranty-backend/internal/warranty"
)

// applianceRequest is shared by create and update. Absent keys leave the
// stored value alone on update.
type applianceRequest struct {
	ApplianceType  optional[string] `json:"appliance_type"`
	Brand          optional[string] `json:"brand"`
	Model          optional[string] `json:"model"`
	StoreName      optional[string] `json:"store_name"`
	PurchaseDate   optional[string] `json:"purchase_date"`
	WarrantyMonths optional[int]    `json:"warranty_months"`
	WarrantyEnd    optional[string] `json:"warranty_end_date"`
	ImageURL       optional[string] `json:"image_url"`
	ReceiptURL     optional[string] `json:"receipt_url"`
	WarrantyDocURL optional[string] `json:"warranty_doc_url"`
	Notes          optional[string] `json:"notes"`
}

func trimmed(o optional[string]) string {
	if o.Value == nil {
		return ""
	}
	return strings.TrimSpace(*o.Value)
}

// apply copies the present fields onto a.
func (r *applianceRequest) apply(a *model.Appliance) error {
	if r.ApplianceType.Set {
		a.ApplianceType = trimmed(r.ApplianceType)
		if a.ApplianceType == "" {
			a.ApplianceType = model.DefaultApplianceType
		}
	}
	if r.Brand.Set {
		a.Brand = trimmed(r.Brand)
	}
	if r.Model.Set {
		a.Model = trimmed(r.Model)
	}
	if r.StoreName.Set {
		a.StoreName = trimmed(r.StoreName)
	}
	if r.PurchaseDate.Set {
		d, err := parseDate(r.PurchaseDate.Value)
		if err != nil {
			return validationError{"purchase_date", "must be YYYY-MM-DD"}
		}
		a.PurchaseDate = d
	}
	if r.WarrantyMonths.Set && r.WarrantyMonths.Value != nil {
		if *r.WarrantyMonths.Value < 1 {
			return validationError{"warranty_months", "must be a positive integer"}
		}
		a.WarrantyMonths = *r.WarrantyMonths.Value
	}
	if r.WarrantyEnd.Value != nil {
		if err := applyWarrantyEnd(a, r.WarrantyEnd.Value); err != nil {
			return err
		}
	}
	if r.ImageURL.Set {
		a.ImageURL = nonEmpty(r.ImageURL.Value)
	}
	if r.ReceiptURL.Set {
		a.ReceiptURL = nonEmpty(r.ReceiptURL.Value)
	}
	if r.WarrantyDocURL.Set {
		a.WarrantyDocURL = nonEmpty(r.WarrantyDocURL.Value)
	}
	if r.Notes.Set {
		a.Notes = nonEmpty(r.Notes.Value)
	}
	return nil
}

// applyWarrantyEnd derives the warranty length from an end date printed on
// the warranty card. It takes precedence over warranty_months.
func applyWarrantyEnd(a *model.Appliance, raw *string) error {
	end, err := parseDate(raw)
	if err != nil {
		return validationError{"warranty_end_date", "must be YYYY-MM-DD"}
	}
	if end == nil {
		return nil
	}
	if a.PurchaseDate == nil {
		return validationError{"warranty_end_date", "requires purchase_date"}
	}
	months := warranty.MonthsBetween(*a.PurchaseDate, *end)
	if months < 1 {
		return validationError{"warranty_end_date", "must be at least a month after purchase_date"}
	}
	a.WarrantyMonths = months
	return nil
}

// ListAppliances returns the caller's appliances. ?include=reminders embeds
// each appliance's reminders.
func (h *Handler) ListAppliances(c *gin.Context) {
	withReminders := c.Query("include") == "reminders"
	appliances, err := h.store.ListAppliances(c.Request.Context(), userID(c), withReminders)
	if err != nil {
		h.fail(c, err)
		return
	}

	today, locale := h.today(), requestLocale(c)
	views := make([]applianceView, 0, len(appliances))
	for i := range appliances {
		views = append(views, newApplianceView(&appliances[i], today, locale))
	}
	c.JSON(http.StatusOK, gin.H{"appliances": views})
}

// GetAppliance returns one appliance with its warranty state.
func (h *Handler) GetAppliance(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	a, err := h.store.GetAppliance(c.Request.Context(), userID(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"appliance": newApplianceView(a, h.today(), requestLocale(c))})
}

// CreateAppliance registers an appliance for the caller.
func (h *Handler) CreateAppliance(c *gin.Context) {
	var req applianceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	a := &model.Appliance{
		UserID:         userID(c),
		ApplianceType:  model.DefaultApplianceType,
		WarrantyMonths: h.defaultMonths(),
	}
	if err := req.apply(a); err != nil {
		respondInvalid(c, err)
		return
	}
	fillFromCatalog(a, h.lookup(c.Request.Context(), a))

	if err := h.store.CreateAppliance(c.Request.Context(), a); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"appliance": newApplianceView(a, h.today(), requestLocale(c))})
}

// UpdateAppliance applies a partial update. The catalog is consulted before
// the write so no transaction stays open across the lookup.
func (h *Handler) UpdateAppliance(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req applianceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	ctx := c.Request.Context()
	uid := userID(c)
	current, err := h.store.GetAppliance(ctx, uid, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	preview := *current
	if err := req.apply(&preview); err != nil {
		respondInvalid(c, err)
		return
	}
	found := h.lookup(ctx, &preview)

	a, err := h.store.UpdateAppliance(ctx, uid, id, func(a *model.Appliance) error {
		if err := req.apply(a); err != nil {
			return err
		}
		fillFromCatalog(a, found)
		return nil
	})
	if err != nil {
		if !respondInvalid(c, err) {
			h.fail(c, err)
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"appliance": newApplianceView(a, h.today(), requestLocale(c))})
}

// DeleteAppliance removes an appliance and its reminders.
func (h *Handler) DeleteAppliance(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.store.DeleteAppliance(c.Request.Context(), userID(c), id); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// lookup asks the catalog about an appliance missing its brand or image.
// Failures yield an empty result and the appliance stays as entered.
func (h *Handler) lookup(ctx context.Context, a *model.Appliance) catalog.Result {
	if h.catalog == nil || a.Model == "" || (a.Brand != "" && a.ImageURL != nil) {
		return catalog.Result{}
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	res := h.catalog.Lookup(ctx, a.Model)
	h.log.Debug("catalog enrichment", zap.String("model", a.Model),
		zap.Bool("brand", res.Brand != nil), zap.Bool("image", res.ImageURL != nil))
	return res
}

func fillFromCatalog(a *model.Appliance, res catalog.Result) {
	if a.Brand == "" && res.Brand != nil {
		a.Brand = *res.Brand
	}
	if a.ImageURL == nil && res.ImageURL != nil {
		a.ImageURL = res.ImageURL
	}
}
