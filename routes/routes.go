package routes

import (
	"net/http"
	"time"

	"clinicbook/handlers"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RegisterFlowRoutes sets up the endpoints of the booking wizard.
func RegisterFlowRoutes(r *gin.Engine, h *handlers.BookingHandler) {
	flow := r.Group("/api/flow")
	{
		flow.POST("/session", h.InitiateSession)
		flow.GET("/session/:sessionID", h.GetSession)
		flow.POST("/session/:sessionID/advance", h.Advance)
		flow.POST("/session/:sessionID/retreat", h.Retreat)
		flow.POST("/session/:sessionID/goto", h.JumpTo)
		flow.POST("/session/:sessionID/slots", h.ToggleSlot)
		flow.GET("/session/:sessionID/availability", h.LoadMonth)
		flow.GET("/session/:sessionID/availability/:date", h.SlotsFor)
		flow.POST("/session/:sessionID/confirm", h.Confirm)
		flow.POST("/session/:sessionID/reset", h.Reset)
		flow.DELETE("/session/:sessionID", h.CancelSession)
		flow.POST("/session/:sessionID/notify", h.RequestNotification)
	}
}

// RegisterHealthRoute registers a health-check endpoint.
func RegisterHealthRoute(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, h *handlers.BookingHandler) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	RegisterHealthRoute(r)
	RegisterFlowRoutes(r, h)
}
