package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"ambulance-ews/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AlertEventsRepository 报警事件仓库（alert_events 表）
type AlertEventsRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAlertEventsRepository 创建报警事件仓库
func NewAlertEventsRepository(db *sql.DB, logger *zap.Logger) *AlertEventsRepository {
	return &AlertEventsRepository{
		db:     db,
		logger: logger,
	}
}

// AlertEventFilters 报警事件过滤条件
type AlertEventFilters struct {
	PatientID *string
	Stage     *string
	Alert     *bool      // 只看报警 / 只看抑制
	StartTime *time.Time // triggered_at >= StartTime
	EndTime   *time.Time // triggered_at <= EndTime
	Limit     int        // 0 表示默认 100
}

// CreateFromDecision 从决策构造并写入报警事件
func (r *AlertEventsRepository) CreateFromDecision(ctx context.Context, patientID string, decision models.AlertDecision, safetyOverride bool, triggeredAt time.Time) (*models.AlertEvent, error) {
	if patientID == "" {
		return nil, fmt.Errorf("patient_id is required")
	}

	signals := decision.AbnormalSignals
	if signals == nil {
		signals = []string{}
	}
	signalsJSON, err := json.Marshal(signals)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal abnormal signals: %w", err)
	}

	event := &models.AlertEvent{
		EventID:         uuid.New().String(),
		PatientID:       patientID,
		Stage:           string(decision.Stage),
		RiskScore:       decision.RiskScore,
		Alert:           decision.Alert,
		Explanation:     decision.Explanation,
		AbnormalSignals: string(signalsJSON),
		SafetyOverride:  safetyOverride,
		TriggeredAt:     triggeredAt,
	}

	if err := r.CreateAlertEvent(ctx, event); err != nil {
		return nil, err
	}
	return event, nil
}

// CreateAlertEvent 写入报警事件
func (r *AlertEventsRepository) CreateAlertEvent(ctx context.Context, event *models.AlertEvent) error {
	query := `
		INSERT INTO alert_events (
			event_id, patient_id, stage, risk_score, alert,
			explanation, abnormal_signals, safety_override, triggered_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
	`

	_, err := r.db.ExecContext(ctx, query,
		event.EventID,
		event.PatientID,
		event.Stage,
		event.RiskScore,
		event.Alert,
		event.Explanation,
		event.AbnormalSignals,
		event.SafetyOverride,
		event.TriggeredAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert alert event: %w", err)
	}

	r.logger.Debug("Alert event created",
		zap.String("event_id", event.EventID),
		zap.String("patient_id", event.PatientID),
		zap.String("stage", event.Stage),
		zap.Bool("alert", event.Alert),
	)

	return nil
}

// GetAlertEvent 根据 event_id 获取单个报警事件
func (r *AlertEventsRepository) GetAlertEvent(ctx context.Context, eventID string) (*models.AlertEvent, error) {
	if eventID == "" {
		return nil, fmt.Errorf("event_id is required")
	}

	query := `
		SELECT event_id, patient_id, stage, risk_score, alert,
		       explanation, abnormal_signals, safety_override, triggered_at, created_at
		FROM alert_events
		WHERE event_id = $1
	`

	var event models.AlertEvent
	err := r.db.QueryRowContext(ctx, query, eventID).Scan(
		&event.EventID,
		&event.PatientID,
		&event.Stage,
		&event.RiskScore,
		&event.Alert,
		&event.Explanation,
		&event.AbnormalSignals,
		&event.SafetyOverride,
		&event.TriggeredAt,
		&event.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("alert event not found: %s", eventID)
		}
		return nil, fmt.Errorf("failed to get alert event: %w", err)
	}

	return &event, nil
}

// ListAlertEvents 按过滤条件查询报警事件（按 triggered_at 倒序）
func (r *AlertEventsRepository) ListAlertEvents(ctx context.Context, filters AlertEventFilters) ([]models.AlertEvent, error) {
	var conditions []string
	var args []interface{}
	argIdx := 1

	addCondition := func(cond string, value interface{}) {
		conditions = append(conditions, fmt.Sprintf(cond, argIdx))
		args = append(args, value)
		argIdx++
	}

	if filters.PatientID != nil {
		addCondition("patient_id = $%d", *filters.PatientID)
	}
	if filters.Stage != nil {
		addCondition("stage = $%d", *filters.Stage)
	}
	if filters.Alert != nil {
		addCondition("alert = $%d", *filters.Alert)
	}
	if filters.StartTime != nil {
		addCondition("triggered_at >= $%d", *filters.StartTime)
	}
	if filters.EndTime != nil {
		addCondition("triggered_at <= $%d", *filters.EndTime)
	}

	query := `
		SELECT event_id, patient_id, stage, risk_score, alert,
		       explanation, abnormal_signals, safety_override, triggered_at, created_at
		FROM alert_events
	`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY triggered_at DESC"

	limit := filters.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list alert events: %w", err)
	}
	defer rows.Close()

	var events []models.AlertEvent
	for rows.Next() {
		var event models.AlertEvent
		if err := rows.Scan(
			&event.EventID,
			&event.PatientID,
			&event.Stage,
			&event.RiskScore,
			&event.Alert,
			&event.Explanation,
			&event.AbnormalSignals,
			&event.SafetyOverride,
			&event.TriggeredAt,
			&event.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan alert event: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate alert events: %w", err)
	}

	return events, nil
}
