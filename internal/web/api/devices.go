package api

import (
	"log"
	"strconv"

	"sensorstation/internal/models"
	"sensorstation/internal/rules"
	"sensorstation/internal/sensordata"
	webModels "sensorstation/internal/web/models"

	"github.com/gin-gonic/gin"
)

// RegisterDeviceRoutes exposes device telemetry and the manual command
// path the dashboard uses.
func RegisterDeviceRoutes(r *gin.Engine, data *sensordata.Service, dispatcher rules.CommandDispatcher) {
	group := r.Group("/api/devices")
	{
		group.GET("/:id/latest", func(c *gin.Context) {
			snap, err := data.GetLatest(c.Request.Context(), c.Param("id"))
			if err != nil {
				log.Printf("WEB: Failed to fetch latest data: %v", err)
				c.JSON(500, gin.H{"error": "Failed to fetch device data"})
				return
			}
			if snap == nil {
				c.JSON(404, gin.H{"error": "No data for device"})
				return
			}
			c.JSON(200, snap)
		})

		group.GET("/:id/readings/:sensor", func(c *gin.Context) {
			limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "50"), 10, 64)
			readings, err := data.RecentReadings(c.Request.Context(), c.Param("id"), c.Param("sensor"), limit)
			if err != nil {
				log.Printf("WEB: Failed to fetch readings: %v", err)
				c.JSON(500, gin.H{"error": "Failed to fetch readings"})
				return
			}
			c.JSON(200, readings)
		})

		group.GET("/:id/connection", func(c *gin.Context) {
			conn, err := data.GetConnection(c.Request.Context(), c.Param("id"))
			if err != nil {
				log.Printf("WEB: Failed to fetch connection status: %v", err)
				c.JSON(500, gin.H{"error": "Failed to fetch connection status"})
				return
			}
			if conn == nil {
				c.JSON(404, gin.H{"error": "Unknown device"})
				return
			}
			c.JSON(200, conn)
		})

		group.POST("/:id/commands", func(c *gin.Context) {
			var req webModels.CommandRequest
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(400, gin.H{"error": "Invalid request body"})
				return
			}
			deviceID := c.Param("id")
			var cmdID string
			if deviceID == models.BroadcastDevice {
				cmdID = dispatcher.BroadcastCommandToAll(req.Component, req.Command, req.Value)
			} else {
				cmdID = dispatcher.SendCommand(deviceID, req.Component, req.Command, req.Value)
			}
			if cmdID == "" {
				c.JSON(502, gin.H{"error": "Command transport unavailable"})
				return
			}
			c.JSON(200, gin.H{"commandId": cmdID})
		})
	}
}
