package controllers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"guestlist-backend/middleware"
	"guestlist-backend/models"
	"guestlist-backend/services"
	"guestlist-backend/utils"

	"github.com/gin-gonic/gin"
)

type DoorController struct {
	CheckInSvc *services.CheckInService
}

func NewDoorController(svc *services.CheckInService) *DoorController {
	return &DoorController{CheckInSvc: svc}
}

// countPayload: a missing count means "everyone".
type countPayload struct {
	Count *int `json:"count"`
}

// GET /api/door/events/:id/guests?q=
func (c *DoorController) ListGuests(ctx *gin.Context) {
	eventID, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	list, err := c.CheckInSvc.List(ctx.Request.Context(), eventID, ctx.Query("q"))
	if err != nil {
		respondError(ctx, err, nil)
		return
	}
	utils.JSONSuccess(ctx, http.StatusOK, list)
}

// GET /api/door/guests/:id
func (c *DoorController) GetStatus(ctx *gin.Context) {
	guestID, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	status, err := c.CheckInSvc.Status(ctx.Request.Context(), guestID)
	if err != nil {
		respondError(ctx, err, nil)
		return
	}
	utils.JSONSuccess(ctx, http.StatusOK, status)
}

// POST /api/door/guests/:id/checkin
func (c *DoorController) CheckIn(ctx *gin.Context) {
	c.transition(ctx, c.CheckInSvc.CheckIn)
}

// POST /api/door/guests/:id/checkout
func (c *DoorController) CheckOut(ctx *gin.Context) {
	c.transition(ctx, c.CheckInSvc.CheckOut)
}

type transitionFunc func(ctx context.Context, actor *models.User, guestID uint, count *int) (*services.DoorStatus, error)

// transition runs a door action. On failure the response carries the
// guest's current confirmed state so the door UI can resync.
func (c *DoorController) transition(ctx *gin.Context, do transitionFunc) {
	guestID, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	var payload countPayload
	if err := ctx.ShouldBindJSON(&payload); err != nil && !errors.Is(err, io.EOF) {
		badPayload(ctx, err)
		return
	}

	status, err := do(ctx.Request.Context(), middleware.CurrentUser(ctx), guestID, payload.Count)
	if err != nil {
		var extra gin.H
		if current, sErr := c.CheckInSvc.Status(ctx.Request.Context(), guestID); sErr == nil {
			extra = gin.H{"current": current}
		}
		respondError(ctx, err, extra)
		return
	}
	utils.JSONSuccess(ctx, http.StatusOK, status)
}
