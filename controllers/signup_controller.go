package controllers

import (
	"net/http"

	"guestlist-backend/services"
	"guestlist-backend/utils"

	"github.com/gin-gonic/gin"
)

// SignupController serves the public signup page. No authentication.
type SignupController struct {
	SignupSvc *services.SignupService
}

func NewSignupController(svc *services.SignupService) *SignupController {
	return &SignupController{SignupSvc: svc}
}

// GET /api/s/:slug
func (c *SignupController) GetLink(ctx *gin.Context) {
	info, err := c.SignupSvc.LinkInfo(ctx.Request.Context(), ctx.Param("slug"))
	if err != nil {
		respondError(ctx, err, nil)
		return
	}
	utils.JSONSuccess(ctx, http.StatusOK, info)
}

// POST /api/s/:slug
func (c *SignupController) Signup(ctx *gin.Context) {
	var req services.SignupRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badPayload(ctx, err)
		return
	}

	guest, err := c.SignupSvc.Signup(ctx.Request.Context(), ctx.Param("slug"), req)
	if err != nil {
		respondError(ctx, err, nil)
		return
	}
	utils.JSONSuccess(ctx, http.StatusCreated, gin.H{
		"guestId":   guest.ID,
		"firstName": guest.FirstName,
		"lastName":  guest.LastName,
		"partySize": guest.PartySize(),
	})
}
