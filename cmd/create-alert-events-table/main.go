package main

import (
	"database/sql"
	"fmt"
	"os"

	"ambulance-ews/internal/config"

	_ "github.com/lib/pq"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS alert_events (
    event_id         UUID PRIMARY KEY,
    patient_id       VARCHAR(64) NOT NULL,
    stage            VARCHAR(32) NOT NULL,
    risk_score       DOUBLE PRECISION NOT NULL,
    alert            BOOLEAN NOT NULL,
    explanation      TEXT NOT NULL DEFAULT '',
    abnormal_signals JSONB NOT NULL DEFAULT '[]',
    safety_override  BOOLEAN NOT NULL DEFAULT FALSE,
    triggered_at     TIMESTAMPTZ NOT NULL,
    created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_alert_events_patient_triggered
    ON alert_events (patient_id, triggered_at DESC);

CREATE INDEX IF NOT EXISTS idx_alert_events_stage
    ON alert_events (stage);
`

func main() {
	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 连接数据库
	db, err := sql.Open("postgres", cfg.Database.GetDSN())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to ping database: %v\n", err)
		os.Exit(1)
	}

	// 执行 SQL
	if _, err := db.Exec(createTableSQL); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to execute SQL: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("✅ alert_events table created successfully!")
}
