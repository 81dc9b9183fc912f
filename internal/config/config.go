package config

import (
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	RedisAddr       string `mapstructure:"REDIS_ADDR"`
	MQTTBroker      string `mapstructure:"MQTT_BROKER"`
	MQTTClientID    string `mapstructure:"MQTT_CLIENT_ID"`
	MQTTTopicPrefix string `mapstructure:"MQTT_TOPIC_PREFIX"`
	HTTPAddr        string `mapstructure:"HTTP_ADDR"`
	LogLevel        string `mapstructure:"LOG_LEVEL"`
}

// LoadConfig reads configuration from file, .env, or env vars
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		println("Error loading .env file: ", err.Error())
	}

	viper.AutomaticEnv()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("MQTT_BROKER", "tcp://broker.emqx.io:1883")
	viper.SetDefault("MQTT_CLIENT_ID", "station-backend")
	viper.SetDefault("MQTT_TOPIC_PREFIX", "ycstation/devices/")
	viper.SetDefault("HTTP_ADDR", ":5069")

	cfg := &Config{
		RedisAddr:       viper.GetString("REDIS_ADDR"),
		MQTTBroker:      viper.GetString("MQTT_BROKER"),
		MQTTClientID:    viper.GetString("MQTT_CLIENT_ID"),
		MQTTTopicPrefix: viper.GetString("MQTT_TOPIC_PREFIX"),
		HTTPAddr:        viper.GetString("HTTP_ADDR"),
		LogLevel:        viper.GetString("LOG_LEVEL"),
	}
	return cfg, nil
}
