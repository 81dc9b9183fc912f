package api

import (
	"errors"
	"log"

	"sensorstation/internal/models"
	"sensorstation/internal/rules"
	webModels "sensorstation/internal/web/models"

	"github.com/gin-gonic/gin"
)

// RegisterRuleRoutes exposes the rule engine's CRUD and history
// surface.
func RegisterRuleRoutes(r *gin.Engine, svc *rules.Service) {
	group := r.Group("/api/rules")
	{
		group.GET("", func(c *gin.Context) {
			c.JSON(200, svc.ListRules(c.Request.Context()))
		})

		group.POST("", func(c *gin.Context) {
			var rule models.Rule
			if err := c.ShouldBindJSON(&rule); err != nil {
				c.JSON(400, gin.H{"error": "Invalid request body"})
				return
			}
			id, err := svc.SaveRule(c.Request.Context(), &rule)
			if err != nil {
				var verr *models.ValidationError
				if errors.As(err, &verr) {
					c.JSON(400, gin.H{"error": verr.Error()})
					return
				}
				log.Printf("WEB: Failed to save rule: %v", err)
				c.JSON(500, gin.H{"error": "Failed to save rule"})
				return
			}
			c.JSON(200, gin.H{"id": id})
		})

		group.GET("/:id", func(c *gin.Context) {
			rule := svc.GetRule(c.Request.Context(), c.Param("id"))
			if rule == nil {
				c.JSON(404, gin.H{"error": "Rule not found"})
				return
			}
			c.JSON(200, rule)
		})

		group.DELETE("/:id", func(c *gin.Context) {
			if !svc.DeleteRule(c.Request.Context(), c.Param("id")) {
				c.JSON(500, gin.H{"error": "Failed to delete rule"})
				return
			}
			c.JSON(200, gin.H{"status": "Rule deleted"})
		})

		group.PATCH("/:id/enabled", func(c *gin.Context) {
			var req webModels.EnableRequest
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(400, gin.H{"error": "Invalid request body"})
				return
			}
			if !svc.SetRuleEnabled(c.Request.Context(), c.Param("id"), *req.Enabled) {
				c.JSON(404, gin.H{"error": "Rule not found"})
				return
			}
			c.JSON(200, gin.H{"status": "ok"})
		})

		group.GET("/:id/history", func(c *gin.Context) {
			c.JSON(200, svc.GetRuleHistory(c.Request.Context(), c.Param("id")))
		})
	}
}
