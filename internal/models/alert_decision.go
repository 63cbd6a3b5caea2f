package models

import "time"

// Stage 决策级联的终止阶段
type Stage string

const (
	StagePlausibilityFailed   Stage = "plausibility_failed"
	StageCriticalOverride     Stage = "critical_override"
	StageInsufficientSignals  Stage = "insufficient_signals"
	StageMotionArtifact       Stage = "motion_artifact"
	StageLowConfidence        Stage = "low_confidence"
	StageConfirmedAlert       Stage = "confirmed_alert"
	StageAwaitingConfirmation Stage = "awaiting_confirmation"
	StageSafetyOverride       Stage = "safety_override"
)

// AlertDecision 决策引擎输出（每个窗口一条，不可变）
// RiskScore 与 Alert 刻意解耦：风险分超过阈值但未经时序确认时 Alert 仍为 false，
// 让操作员在确认前就能看到风险上升
type AlertDecision struct {
	RiskScore       float64  `json:"risk_score"` // [0,100]
	Alert           bool     `json:"alert"`
	Explanation     string   `json:"explanation"`
	Stage           Stage    `json:"stage"`
	AbnormalSignals []string `json:"abnormal_signals"`
}

// AlertEvent 报警事件（对应 alert_events 表）
type AlertEvent struct {
	EventID         string    `json:"event_id" db:"event_id"`
	PatientID       string    `json:"patient_id" db:"patient_id"`
	Stage           string    `json:"stage" db:"stage"`
	RiskScore       float64   `json:"risk_score" db:"risk_score"`
	Alert           bool      `json:"alert" db:"alert"`
	Explanation     string    `json:"explanation" db:"explanation"`
	AbnormalSignals string    `json:"abnormal_signals" db:"abnormal_signals"` // JSONB
	SafetyOverride  bool      `json:"safety_override" db:"safety_override"`
	TriggeredAt     time.Time `json:"triggered_at" db:"triggered_at"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}

// PredictResponse POST /predict 响应（与决策引擎输出的映射见 AlertDecision）
type PredictResponse struct {
	Anomaly        bool    `json:"anomaly"`
	RiskScore      float64 `json:"risk_score"`
	Confidence     float64 `json:"confidence"`
	SafetyOverride bool    `json:"safety_override"`
}
