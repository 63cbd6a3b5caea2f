package repository_test

import (
	"context"
	"testing"
	"time"

	"ambulance-ews/internal/models"
	"ambulance-ews/internal/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var eventColumns = []string{
	"event_id", "patient_id", "stage", "risk_score", "alert",
	"explanation", "abnormal_signals", "safety_override", "triggered_at", "created_at",
}

func newTestRepo(t *testing.T) (*repository.AlertEventsRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return repository.NewAlertEventsRepository(db, zap.NewNop()), mock
}

func TestCreateFromDecision_InsertsEvent(t *testing.T) {
	repo, mock := newTestRepo(t)
	triggeredAt := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	decision := models.AlertDecision{
		RiskScore:       90,
		Alert:           true,
		Explanation:     "Alert: 2 abnormal signals - spo2_low, sbp_low",
		Stage:           models.StageConfirmedAlert,
		AbnormalSignals: []string{"spo2_low", "sbp_low"},
	}

	mock.ExpectExec(`(?s)INSERT INTO alert_events`).
		WithArgs(sqlmock.AnyArg(), "p1", "confirmed_alert", 90.0, true,
			decision.Explanation, `["spo2_low","sbp_low"]`, false, triggeredAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	event, err := repo.CreateFromDecision(context.Background(), "p1", decision, false, triggeredAt)
	require.NoError(t, err)
	require.NotEmpty(t, event.EventID)
	require.Equal(t, "confirmed_alert", event.Stage)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateFromDecision_RequiresPatientID(t *testing.T) {
	repo, _ := newTestRepo(t)

	_, err := repo.CreateFromDecision(context.Background(), "", models.AlertDecision{}, false, time.Now())
	require.Error(t, err)
}

func TestCreateFromDecision_NilSignalsStoredAsEmptyArray(t *testing.T) {
	repo, mock := newTestRepo(t)
	triggeredAt := time.Now()

	decision := models.AlertDecision{
		RiskScore:   95,
		Alert:       true,
		Explanation: "SAFETY OVERRIDE: SpO2 67.0 < 90",
		Stage:       models.StageSafetyOverride,
	}

	mock.ExpectExec(`(?s)INSERT INTO alert_events`).
		WithArgs(sqlmock.AnyArg(), "p1", "safety_override", 95.0, true,
			decision.Explanation, "[]", true, triggeredAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	event, err := repo.CreateFromDecision(context.Background(), "p1", decision, true, triggeredAt)
	require.NoError(t, err)
	require.Equal(t, "[]", event.AbnormalSignals)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetAlertEvent_Found(t *testing.T) {
	repo, mock := newTestRepo(t)
	now := time.Now()

	mock.ExpectQuery(`(?s)SELECT.+FROM alert_events.+WHERE event_id`).
		WithArgs("evt-1").
		WillReturnRows(sqlmock.NewRows(eventColumns).AddRow(
			"evt-1", "p1", "confirmed_alert", 90.0, true,
			"Alert: 2 abnormal signals - spo2_low, sbp_low", `["spo2_low","sbp_low"]`, false, now, now,
		))

	event, err := repo.GetAlertEvent(context.Background(), "evt-1")
	require.NoError(t, err)
	require.Equal(t, "p1", event.PatientID)
	require.Equal(t, 90.0, event.RiskScore)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetAlertEvent_NotFound(t *testing.T) {
	repo, mock := newTestRepo(t)

	mock.ExpectQuery(`(?s)SELECT.+FROM alert_events.+WHERE event_id`).
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows(eventColumns))

	_, err := repo.GetAlertEvent(context.Background(), "ghost")
	require.Error(t, err)
	require.Contains(t, err.Error(), "not found")
}

func TestListAlertEvents_NoFiltersUsesDefaultLimit(t *testing.T) {
	repo, mock := newTestRepo(t)
	now := time.Now()

	mock.ExpectQuery(`(?s)SELECT.+FROM alert_events.+ORDER BY triggered_at DESC LIMIT`).
		WithArgs(100).
		WillReturnRows(sqlmock.NewRows(eventColumns).AddRow(
			"evt-1", "p1", "awaiting_confirmation", 80.0, false,
			"Monitoring: Awaiting confirmation", `["spo2_low","sbp_low"]`, false, now, now,
		))

	events, err := repo.ListAlertEvents(context.Background(), repository.AlertEventFilters{})
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListAlertEvents_AllFiltersApplied(t *testing.T) {
	repo, mock := newTestRepo(t)
	now := time.Now()
	patientID := "p1"
	stage := "confirmed_alert"
	alert := true
	start := now.Add(-time.Hour)
	end := now

	mock.ExpectQuery(`(?s)SELECT.+FROM alert_events.+WHERE patient_id = \$1 AND stage = \$2 AND alert = \$3 AND triggered_at >= \$4 AND triggered_at <= \$5 ORDER BY triggered_at DESC LIMIT`).
		WithArgs(patientID, stage, alert, start, end, 10).
		WillReturnRows(sqlmock.NewRows(eventColumns))

	events, err := repo.ListAlertEvents(context.Background(), repository.AlertEventFilters{
		PatientID: &patientID,
		Stage:     &stage,
		Alert:     &alert,
		StartTime: &start,
		EndTime:   &end,
		Limit:     10,
	})
	require.NoError(t, err)
	require.Empty(t, events)
	require.NoError(t, mock.ExpectationsWereMet())
}
