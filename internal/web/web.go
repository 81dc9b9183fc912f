package web

import (
	"sensorstation/internal/events"
	"sensorstation/internal/rules"
	"sensorstation/internal/sensordata"
	"sensorstation/internal/web/api"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type WebServer struct {
	router *gin.Engine
}

// NewWebServer builds the HTTP surface: rule CRUD, device telemetry,
// the dashboard WebSocket and Prometheus metrics.
func NewWebServer(svc *rules.Service, data *sensordata.Service, dispatcher rules.CommandDispatcher, hub *events.Hub) *WebServer {
	router := gin.Default()

	api.RegisterRuleRoutes(router, svc)
	api.RegisterDeviceRoutes(router, data, dispatcher)

	router.GET("/ws", func(c *gin.Context) {
		hub.ServeWS(c.Writer, c.Request)
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return &WebServer{router: router}
}

func (ws *WebServer) Start(addr string) error {
	return ws.router.Run(addr)
}
