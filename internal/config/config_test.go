package config

import (
	"os"
	"testing"
)

func TestLoad_DefaultValues(t *testing.T) {
	// 清除环境变量
	os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	// 检查默认值
	if cfg.Database.Host != "localhost" {
		t.Errorf("Expected DB_HOST default 'localhost', got '%s'", cfg.Database.Host)
	}

	if cfg.Database.Port != 5432 {
		t.Errorf("Expected DB_PORT default 5432, got %d", cfg.Database.Port)
	}

	if cfg.Database.Database != "ambulance_ews" {
		t.Errorf("Expected DB_NAME default 'ambulance_ews', got '%s'", cfg.Database.Database)
	}

	if cfg.Redis.Addr != "localhost:6379" {
		t.Errorf("Expected REDIS_ADDR default 'localhost:6379', got '%s'", cfg.Redis.Addr)
	}

	if cfg.MQTT.Enabled {
		t.Errorf("Expected MQTT_ENABLED default false")
	}

	if cfg.Engine.TemporalBufferSize != 3 {
		t.Errorf("Expected temporal buffer size default 3, got %d", cfg.Engine.TemporalBufferSize)
	}

	if cfg.Engine.MinConfidence != 0.7 {
		t.Errorf("Expected min confidence default 0.7, got %v", cfg.Engine.MinConfidence)
	}

	if cfg.Engine.MinAbnormalSignals != 2 {
		t.Errorf("Expected min abnormal signals default 2, got %d", cfg.Engine.MinAbnormalSignals)
	}

	if !cfg.Engine.CriticalOverrideEnabled {
		t.Errorf("Expected critical override default true")
	}

	if cfg.Stream.Input != "ews:vitals:in" {
		t.Errorf("Expected STREAM_INPUT default 'ews:vitals:in', got '%s'", cfg.Stream.Input)
	}

	if cfg.Stream.ConsumerGroup != "ews-engine" {
		t.Errorf("Expected STREAM_CONSUMER_GROUP default 'ews-engine', got '%s'", cfg.Stream.ConsumerGroup)
	}

	if cfg.Scorer.RemoteURL != "" {
		t.Errorf("Expected SCORER_REMOTE_URL default empty, got '%s'", cfg.Scorer.RemoteURL)
	}

	if cfg.Log.Level != "info" {
		t.Errorf("Expected LOG_LEVEL default 'info', got '%s'", cfg.Log.Level)
	}
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	// 设置环境变量
	os.Setenv("DB_HOST", "test-host")
	os.Setenv("REDIS_ADDR", "redis-test:6379")
	os.Setenv("ENGINE_TEMPORAL_BUFFER_SIZE", "5")
	os.Setenv("ENGINE_MIN_CONFIDENCE", "0.8")
	os.Setenv("ENGINE_CRITICAL_OVERRIDE", "false")
	os.Setenv("SCORER_REMOTE_URL", "http://model:9000")
	os.Setenv("LOG_LEVEL", "debug")
	defer os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if cfg.Database.Host != "test-host" {
		t.Errorf("Expected DB_HOST 'test-host', got '%s'", cfg.Database.Host)
	}

	if cfg.Redis.Addr != "redis-test:6379" {
		t.Errorf("Expected REDIS_ADDR 'redis-test:6379', got '%s'", cfg.Redis.Addr)
	}

	if cfg.Engine.TemporalBufferSize != 5 {
		t.Errorf("Expected temporal buffer size 5, got %d", cfg.Engine.TemporalBufferSize)
	}

	if cfg.Engine.MinConfidence != 0.8 {
		t.Errorf("Expected min confidence 0.8, got %v", cfg.Engine.MinConfidence)
	}

	if cfg.Engine.CriticalOverrideEnabled {
		t.Errorf("Expected critical override disabled")
	}

	if cfg.Scorer.RemoteURL != "http://model:9000" {
		t.Errorf("Expected SCORER_REMOTE_URL 'http://model:9000', got '%s'", cfg.Scorer.RemoteURL)
	}

	if cfg.Log.Level != "debug" {
		t.Errorf("Expected LOG_LEVEL 'debug', got '%s'", cfg.Log.Level)
	}
}

func TestLoad_InvalidEngineConfigRejected(t *testing.T) {
	os.Clearenv()
	os.Setenv("ENGINE_TEMPORAL_BUFFER_SIZE", "0")
	defer os.Clearenv()

	if _, err := Load(); err == nil {
		t.Errorf("Expected error for zero temporal buffer size")
	}
}

func TestGetDSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "db-host",
		Port:     5433,
		User:     "ews",
		Password: "secret",
		Database: "ambulance_ews",
		SSLMode:  "disable",
	}

	dsn := cfg.GetDSN()
	expected := "host=db-host port=5433 user=ews password=secret dbname=ambulance_ews sslmode=disable"
	if dsn != expected {
		t.Errorf("Expected DSN '%s', got '%s'", expected, dsn)
	}
}
