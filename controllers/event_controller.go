package controllers

import (
	"net/http"

	"guestlist-backend/middleware"
	"guestlist-backend/services"
	"guestlist-backend/utils"

	"github.com/gin-gonic/gin"
)

type EventController struct {
	EventSvc *services.EventService
}

func NewEventController(svc *services.EventService) *EventController {
	return &EventController{EventSvc: svc}
}

// GET /api/events?archived=true
func (c *EventController) ListEvents(ctx *gin.Context) {
	events, err := c.EventSvc.List(ctx.Request.Context(), middleware.CurrentUser(ctx), ctx.Query("archived") == "true")
	if err != nil {
		respondError(ctx, err, nil)
		return
	}
	utils.JSONSuccess(ctx, http.StatusOK, events)
}

// GET /api/door/events
func (c *EventController) DoorEvents(ctx *gin.Context) {
	events, err := c.EventSvc.DoorEvents(ctx.Request.Context(), middleware.CurrentUser(ctx))
	if err != nil {
		respondError(ctx, err, nil)
		return
	}
	utils.JSONSuccess(ctx, http.StatusOK, events)
}

// GET /api/events/:id
func (c *EventController) GetEvent(ctx *gin.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	ev, err := c.EventSvc.Get(ctx.Request.Context(), id)
	if err != nil {
		respondError(ctx, err, nil)
		return
	}
	utils.JSONSuccess(ctx, http.StatusOK, ev)
}

// POST /api/events
func (c *EventController) CreateEvent(ctx *gin.Context) {
	var in services.EventInput
	if err := ctx.ShouldBindJSON(&in); err != nil {
		badPayload(ctx, err)
		return
	}
	ev, err := c.EventSvc.Create(ctx.Request.Context(), middleware.CurrentUser(ctx), in)
	if err != nil {
		respondError(ctx, err, nil)
		return
	}
	utils.JSONSuccess(ctx, http.StatusCreated, ev)
}

// PUT /api/events/:id
func (c *EventController) UpdateEvent(ctx *gin.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	var in services.EventInput
	if err := ctx.ShouldBindJSON(&in); err != nil {
		badPayload(ctx, err)
		return
	}
	ev, err := c.EventSvc.Update(ctx.Request.Context(), middleware.CurrentUser(ctx), id, in)
	if err != nil {
		respondError(ctx, err, nil)
		return
	}
	utils.JSONSuccess(ctx, http.StatusOK, ev)
}

// POST /api/events/:id/archive
func (c *EventController) ArchiveEvent(ctx *gin.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	ev, err := c.EventSvc.Archive(ctx.Request.Context(), middleware.CurrentUser(ctx), id)
	if err != nil {
		respondError(ctx, err, nil)
		return
	}
	utils.JSONSuccess(ctx, http.StatusOK, ev)
}

// POST /api/events/:id/unarchive
func (c *EventController) UnarchiveEvent(ctx *gin.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	ev, err := c.EventSvc.Unarchive(ctx.Request.Context(), middleware.CurrentUser(ctx), id)
	if err != nil {
		respondError(ctx, err, nil)
		return
	}
	utils.JSONSuccess(ctx, http.StatusOK, ev)
}
