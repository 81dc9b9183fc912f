package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"sensorstation/internal/config"
	"sensorstation/internal/events"
	"sensorstation/internal/mqtt"
	"sensorstation/internal/redis"
	"sensorstation/internal/rules"
	"sensorstation/internal/sensordata"
	"sensorstation/internal/store"
	"sensorstation/internal/utils"
	"sensorstation/internal/web"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	utils.InitLogging(cfg.LogLevel)

	redisClient := redis.NewRedisClient(cfg.RedisAddr)
	ruleStore := store.NewRedisStore(redisClient)
	sensorData := sensordata.NewService(redisClient)

	hub := events.NewHub()
	hubCtx, hubCancel := context.WithCancel(context.Background())
	go hub.Run(hubCtx)

	mqttClient, err := mqtt.NewMQTTClient(cfg.MQTTBroker, cfg.MQTTClientID)
	if err != nil {
		log.Fatalf("Failed to connect to MQTT: %v", err)
	}
	transport := mqtt.NewService(mqttClient, cfg.MQTTTopicPrefix, sensorData, hub)
	if err := transport.Subscribe(); err != nil {
		log.Fatalf("Failed to subscribe to device topics: %v", err)
	}

	ruleService := rules.NewService(ruleStore, sensorData, transport, hub)
	if err := ruleService.Init(context.Background()); err != nil {
		log.Fatalf("Failed to initialize rule service: %v", err)
	}

	webServer := web.NewWebServer(ruleService, sensorData, transport, hub)
	go func() {
		if err := webServer.Start(cfg.HTTPAddr); err != nil {
			log.Fatalf("Web server failed: %v", err)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	ruleService.Stop()
	mqttClient.Disconnect(250)
	hubCancel()
	log.Println("Shutdown complete")
}
