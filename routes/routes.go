package routes

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"guestlist-backend/controllers"
	"guestlist-backend/middleware"
	"guestlist-backend/models"
)

// Controllers bundles every handler group the router mounts.
type Controllers struct {
	Signup *controllers.SignupController
	Door   *controllers.DoorController
	Guest  *controllers.GuestController
	Link   *controllers.LinkController
	Event  *controllers.EventController
	User   *controllers.UserController
}

func corsOrigins(configured []string) []string {
	origins := make([]string, 0, len(configured))
	for _, origin := range configured {
		if origin != "" {
			origins = append(origins, origin)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

// SetupRouter mounts the public signup API and the staff API. Staff routes
// use Basic auth; each group then requires the capability it needs.
func SetupRouter(ctl Controllers, auth middleware.Authenticator, allowedOrigins []string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.Logger())

	origins := corsOrigins(allowedOrigins)
	allowCredentials := true
	for _, origin := range origins {
		if origin == "*" {
			allowCredentials = false
			break
		}
	}

	r.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: allowCredentials,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	{
		// public signup
		signup := api.Group("/s")
		{
			signup.GET("/:slug", ctl.Signup.GetLink)
			signup.POST("/:slug", ctl.Signup.Signup)
		}

		staff := api.Group("", middleware.BasicAuth(auth))

		staff.GET("/me", ctl.User.Me)
		staff.GET("/roles", ctl.User.GetRoles)

		door := staff.Group("/door", middleware.RequireCapability(models.CapCheckIn))
		{
			door.GET("/events", ctl.Event.DoorEvents)
			door.GET("/events/:id/guests", ctl.Door.ListGuests)
			door.GET("/guests/:id", ctl.Door.GetStatus)
			door.POST("/guests/:id/checkin", ctl.Door.CheckIn)
			door.POST("/guests/:id/checkout", ctl.Door.CheckOut)
		}

		events := staff.Group("/events", middleware.RequireCapability(models.CapManageEvents))
		{
			events.GET("", ctl.Event.ListEvents)
			events.POST("", ctl.Event.CreateEvent)
			events.GET("/:id", ctl.Event.GetEvent)
			events.PUT("/:id", ctl.Event.UpdateEvent)
			events.POST("/:id/archive", ctl.Event.ArchiveEvent)
			events.POST("/:id/unarchive", ctl.Event.UnarchiveEvent)

			events.GET("/:id/guests", ctl.Guest.ListGuests)
			events.POST("/:id/guests", ctl.Guest.AddGuest)
			events.POST("/:id/import", ctl.Guest.ImportGuests)
			events.GET("/:id/imports", ctl.Guest.ListImports)

			events.GET("/:id/links", ctl.Link.ListLinks)
			events.POST("/:id/links", ctl.Link.CreateLink)
		}

		guests := staff.Group("/guests", middleware.RequireCapability(models.CapManageGuests))
		{
			guests.GET("/:id", ctl.Guest.GetGuest)
			guests.PUT("/:id", ctl.Guest.UpdateGuest)
			guests.DELETE("/:id", ctl.Guest.DeleteGuest)
		}

		links := staff.Group("/links", middleware.RequireCapability(models.CapManageLinks))
		{
			links.PUT("/:id", ctl.Link.UpdateLink)
			links.DELETE("/:id", ctl.Link.DeleteLink)
		}

		users := staff.Group("/users", middleware.RequireCapability(models.CapManageUsers))
		{
			users.GET("", ctl.User.GetUsers)
			users.POST("", ctl.User.CreateUser)
			users.DELETE("/:id", ctl.User.DeleteUser)
		}
	}

	return r
}
