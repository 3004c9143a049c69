package controllers

import (
	"net/http"

	"guestlist-backend/middleware"
	"guestlist-backend/services"
	"guestlist-backend/utils"

	"github.com/gin-gonic/gin"
)

type GuestController struct {
	GuestSvc  *services.GuestService
	ImportSvc *services.ImportService
}

func NewGuestController(svc *services.GuestService, importSvc *services.ImportService) *GuestController {
	return &GuestController{
		GuestSvc:  svc,
		ImportSvc: importSvc,
	}
}

type importPayload struct {
	Rows []services.ImportRow `json:"rows"`
}

// ----------------------------------------------------------------------
// GET /api/events/:id/guests
// ----------------------------------------------------------------------
func (c *GuestController) ListGuests(ctx *gin.Context) {
	eventID, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	guests, err := c.GuestSvc.ListByEvent(ctx.Request.Context(), middleware.CurrentUser(ctx), eventID)
	if err != nil {
		respondError(ctx, err, nil)
		return
	}
	utils.JSONSuccess(ctx, http.StatusOK, guests)
}

// ----------------------------------------------------------------------
// POST /api/events/:id/guests
// ----------------------------------------------------------------------
func (c *GuestController) AddGuest(ctx *gin.Context) {
	eventID, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	var fields services.GuestFields
	if err := ctx.ShouldBindJSON(&fields); err != nil {
		badPayload(ctx, err)
		return
	}

	guest, err := c.GuestSvc.Add(ctx.Request.Context(), middleware.CurrentUser(ctx), eventID, fields)
	if err != nil {
		respondError(ctx, err, nil)
		return
	}
	utils.JSONSuccess(ctx, http.StatusCreated, guest)
}

// ----------------------------------------------------------------------
// GET /api/guests/:id
// ----------------------------------------------------------------------
func (c *GuestController) GetGuest(ctx *gin.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	guest, err := c.GuestSvc.GetByID(ctx.Request.Context(), id)
	if err != nil {
		respondError(ctx, err, nil)
		return
	}
	utils.JSONSuccess(ctx, http.StatusOK, guest)
}

// ----------------------------------------------------------------------
// PUT /api/guests/:id
// ----------------------------------------------------------------------
func (c *GuestController) UpdateGuest(ctx *gin.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	var fields services.GuestFields
	if err := ctx.ShouldBindJSON(&fields); err != nil {
		badPayload(ctx, err)
		return
	}

	guest, err := c.GuestSvc.Update(ctx.Request.Context(), middleware.CurrentUser(ctx), id, fields)
	if err != nil {
		respondError(ctx, err, nil)
		return
	}
	utils.JSONSuccess(ctx, http.StatusOK, guest)
}

// ----------------------------------------------------------------------
// DELETE /api/guests/:id
// ----------------------------------------------------------------------
func (c *GuestController) DeleteGuest(ctx *gin.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	if err := c.GuestSvc.Delete(ctx.Request.Context(), middleware.CurrentUser(ctx), id); err != nil {
		respondError(ctx, err, nil)
		return
	}
	utils.JSONSuccess(ctx, http.StatusOK, gin.H{"deleted": id})
}

// ----------------------------------------------------------------------
// POST /api/events/:id/import
// ----------------------------------------------------------------------
func (c *GuestController) ImportGuests(ctx *gin.Context) {
	eventID, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	var payload importPayload
	if err := ctx.ShouldBindJSON(&payload); err != nil {
		badPayload(ctx, err)
		return
	}

	result, err := c.ImportSvc.Import(ctx.Request.Context(), middleware.CurrentUser(ctx), eventID, payload.Rows)
	if err != nil {
		respondError(ctx, err, nil)
		return
	}
	utils.JSONSuccess(ctx, http.StatusOK, result)
}

// ----------------------------------------------------------------------
// GET /api/events/:id/imports
// ----------------------------------------------------------------------
func (c *GuestController) ListImports(ctx *gin.Context) {
	eventID, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	batches, err := c.ImportSvc.Batches(ctx.Request.Context(), middleware.CurrentUser(ctx), eventID)
	if err != nil {
		respondError(ctx, err, nil)
		return
	}
	utils.JSONSuccess(ctx, http.StatusOK, batches)
}
