package controllers

import (
	"net/http"

	"guestlist-backend/middleware"
	"guestlist-backend/services"
	"guestlist-backend/utils"

	"github.com/gin-gonic/gin"
)

type LinkController struct {
	LinkSvc *services.LinkService
}

func NewLinkController(svc *services.LinkService) *LinkController {
	return &LinkController{LinkSvc: svc}
}

// GET /api/events/:id/links
func (c *LinkController) ListLinks(ctx *gin.Context) {
	eventID, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	links, err := c.LinkSvc.ListByEvent(ctx.Request.Context(), middleware.CurrentUser(ctx), eventID)
	if err != nil {
		respondError(ctx, err, nil)
		return
	}
	utils.JSONSuccess(ctx, http.StatusOK, links)
}

// POST /api/events/:id/links
func (c *LinkController) CreateLink(ctx *gin.Context) {
	eventID, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	var in services.LinkInput
	if err := ctx.ShouldBindJSON(&in); err != nil {
		badPayload(ctx, err)
		return
	}
	link, err := c.LinkSvc.Create(ctx.Request.Context(), middleware.CurrentUser(ctx), eventID, in)
	if err != nil {
		respondError(ctx, err, nil)
		return
	}
	utils.JSONSuccess(ctx, http.StatusCreated, link)
}

// PUT /api/links/:id
func (c *LinkController) UpdateLink(ctx *gin.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	var in services.LinkInput
	if err := ctx.ShouldBindJSON(&in); err != nil {
		badPayload(ctx, err)
		return
	}
	link, err := c.LinkSvc.Update(ctx.Request.Context(), middleware.CurrentUser(ctx), id, in)
	if err != nil {
		respondError(ctx, err, nil)
		return
	}
	utils.JSONSuccess(ctx, http.StatusOK, link)
}

// DELETE /api/links/:id
func (c *LinkController) DeleteLink(ctx *gin.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	if err := c.LinkSvc.Delete(ctx.Request.Context(), middleware.CurrentUser(ctx), id); err != nil {
		respondError(ctx, err, nil)
		return
	}
	utils.JSONSuccess(ctx, http.StatusOK, gin.H{"deleted": id})
}
