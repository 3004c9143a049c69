package controllers

import (
	"net/http"

	"guestlist-backend/middleware"
	"guestlist-backend/models"
	"guestlist-backend/services"
	"guestlist-backend/utils"

	"github.com/gin-gonic/gin"
)

type UserController struct {
	UserSvc *services.UserService
}

func NewUserController(svc *services.UserService) *UserController {
	return &UserController{UserSvc: svc}
}

type roleResponse struct {
	Name         models.Role         `json:"name"`
	Capabilities []models.Capability `json:"capabilities"`
}

// GET /api/me
func (c *UserController) Me(ctx *gin.Context) {
	user := middleware.CurrentUser(ctx)
	utils.JSONSuccess(ctx, http.StatusOK, gin.H{
		"user":         user,
		"capabilities": user.Role.Capabilities(),
	})
}

// GET /api/roles
func (c *UserController) GetRoles(ctx *gin.Context) {
	roles := models.Roles()
	out := make([]roleResponse, 0, len(roles))
	for _, r := range roles {
		out = append(out, roleResponse{Name: r, Capabilities: r.Capabilities()})
	}
	utils.JSONSuccess(ctx, http.StatusOK, out)
}

// GET /api/users
func (c *UserController) GetUsers(ctx *gin.Context) {
	users, err := c.UserSvc.List(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err, nil)
		return
	}
	utils.JSONSuccess(ctx, http.StatusOK, users)
}

// POST /api/users
func (c *UserController) CreateUser(ctx *gin.Context) {
	var in services.UserInput
	if err := ctx.ShouldBindJSON(&in); err != nil {
		badPayload(ctx, err)
		return
	}
	user, err := c.UserSvc.Create(ctx.Request.Context(), middleware.CurrentUser(ctx), in)
	if err != nil {
		respondError(ctx, err, nil)
		return
	}
	utils.JSONSuccess(ctx, http.StatusCreated, user)
}

// DELETE /api/users/:id
func (c *UserController) DeleteUser(ctx *gin.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	if err := c.UserSvc.Delete(ctx.Request.Context(), middleware.CurrentUser(ctx), id); err != nil {
		respondError(ctx, err, nil)
		return
	}
	utils.JSONSuccess(ctx, http.StatusOK, gin.H{"deleted": id})
}
