package engine_test

import (
	"math"
	"testing"

	"ambulance-ews/internal/engine"
	"ambulance-ews/internal/models"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func batchOf(hr, spo2, sbp []float64) *models.VitalsBatch {
	n := len(hr)
	b := &models.VitalsBatch{
		PatientID: "p1",
		TimeSec:   make([]int64, n),
		HeartRate: hr,
		SpO2:      spo2,
		SBP:       sbp,
		DBP:       make([]float64, n),
		Motion:    make([]float64, n),
	}
	for i := 0; i < n; i++ {
		b.TimeSec[i] = int64(i)
		b.DBP[i] = 80
	}
	return b
}

func TestSafetyGate_Summarize_EmptyBatchDefaults(t *testing.T) {
	g := engine.NewSafetyGate(zap.NewNop())

	s := g.Summarize(&models.VitalsBatch{PatientID: "p1"})
	require.Equal(t, 100.0, s.MinSpO2)
	require.Equal(t, 60.0, s.MaxHR)
	require.Equal(t, 120.0, s.MinSBP)
	require.Equal(t, 120.0, s.MaxSBP)

	// 默认聚合不触发任何规则
	_, triggered := g.Evaluate(s)
	require.False(t, triggered)
}

func TestSafetyGate_Summarize_SkipsNaN(t *testing.T) {
	g := engine.NewSafetyGate(zap.NewNop())

	b := batchOf(
		[]float64{80, math.NaN(), 100},
		[]float64{97, 50, 95}, // NaN 行的 spo2=50 不参与聚合
		[]float64{120, 110, 125},
	)
	b.HeartRate[1] = math.NaN()

	s := g.Summarize(b)
	require.Equal(t, 95.0, s.MinSpO2)
	require.Equal(t, 100.0, s.MaxHR)
	require.Equal(t, 120.0, s.MinSBP)
	require.Equal(t, 125.0, s.MaxSBP)
}

func TestSafetyGate_Evaluate_CriticalHypoxia(t *testing.T) {
	g := engine.NewSafetyGate(zap.NewNop())

	d, triggered := g.Evaluate(models.RawVitalsSummary{
		MinSpO2: 85, MaxHR: 80, MinSBP: 120, MaxSBP: 120,
	})
	require.True(t, triggered)
	require.True(t, d.Alert)
	require.Equal(t, models.StageSafetyOverride, d.Stage)
	require.Equal(t, 95.0, d.RiskScore)
	require.Contains(t, d.Explanation, "SAFETY OVERRIDE")
}

func TestSafetyGate_Evaluate_TieredRules(t *testing.T) {
	g := engine.NewSafetyGate(zap.NewNop())

	// 警戒档（非危急档）
	d, triggered := g.Evaluate(models.RawVitalsSummary{
		MinSpO2: 91, MaxHR: 80, MinSBP: 120, MaxSBP: 120,
	})
	require.True(t, triggered)
	require.Equal(t, 80.0, d.RiskScore)

	d, triggered = g.Evaluate(models.RawVitalsSummary{
		MinSpO2: 98, MaxHR: 130, MinSBP: 120, MaxSBP: 120,
	})
	require.True(t, triggered)
	require.Equal(t, 75.0, d.RiskScore)

	d, triggered = g.Evaluate(models.RawVitalsSummary{
		MinSpO2: 98, MaxHR: 80, MinSBP: 95, MaxSBP: 120,
	})
	require.True(t, triggered)
	require.Equal(t, 75.0, d.RiskScore)

	d, triggered = g.Evaluate(models.RawVitalsSummary{
		MinSpO2: 98, MaxHR: 80, MinSBP: 120, MaxSBP: 190,
	})
	require.True(t, triggered)
	require.Equal(t, 90.0, d.RiskScore)
}

func TestSafetyGate_Evaluate_CombinedRule(t *testing.T) {
	g := engine.NewSafetyGate(zap.NewNop())

	// 单独都不到危急档，组合规则触发
	d, triggered := g.Evaluate(models.RawVitalsSummary{
		MinSpO2: 93, MaxHR: 115, MinSBP: 120, MaxSBP: 120,
	})
	require.True(t, triggered)
	require.Equal(t, 85.0, d.RiskScore)
	require.Contains(t, d.Explanation, "combined")
}

func TestSafetyGate_Evaluate_ScoreIsMaxOfTriggeredRules(t *testing.T) {
	g := engine.NewSafetyGate(zap.NewNop())

	// 多条规则同时触发，取最大分数
	d, triggered := g.Evaluate(models.RawVitalsSummary{
		MinSpO2: 85, MaxHR: 160, MinSBP: 80, MaxSBP: 120,
	})
	require.True(t, triggered)
	require.Equal(t, 95.0, d.RiskScore)
}

func TestSafetyGate_Evaluate_Idempotent(t *testing.T) {
	g := engine.NewSafetyGate(zap.NewNop())
	summary := models.RawVitalsSummary{MinSpO2: 85, MaxHR: 80, MinSBP: 120, MaxSBP: 120}

	d1, t1 := g.Evaluate(summary)
	d2, t2 := g.Evaluate(summary)
	require.Equal(t, t1, t2)
	require.Equal(t, d1, d2)
}

func TestSafetyGate_Evaluate_NormalVitalsNotTriggered(t *testing.T) {
	g := engine.NewSafetyGate(zap.NewNop())

	_, triggered := g.Evaluate(models.RawVitalsSummary{
		MinSpO2: 97, MaxHR: 85, MinSBP: 115, MaxSBP: 130,
	})
	require.False(t, triggered)
}
