package engine

import (
	"fmt"
	"math"
	"strings"

	"ambulance-ews/internal/models"

	"go.uber.org/zap"
)

// SafetyGate 安全兜底门
// 对原始（未清洗）批次做硬阈值检查：只要出现明确的危及生命读数，
// 绕过模型和决策级联直接报警。模型或特征管道失效时这是最后一道防线。
// 无状态、幂等，对同一批次重复执行结果相同。
type SafetyGate struct {
	logger *zap.Logger
}

// NewSafetyGate 创建安全兜底门
func NewSafetyGate(logger *zap.Logger) *SafetyGate {
	return &SafetyGate{logger: logger}
}

// Summarize 计算原始批次聚合（每次请求计算一次，不持久化）
// 空批次返回不触发任何规则的默认值；NaN 样本跳过
func (g *SafetyGate) Summarize(batch *models.VitalsBatch) models.RawVitalsSummary {
	summary := models.NoOverrideSummary()
	if batch == nil || batch.Len() == 0 {
		return summary
	}

	first := true
	for i := 0; i < batch.Len(); i++ {
		spo2 := batch.SpO2[i]
		hr := batch.HeartRate[i]
		sbp := batch.SBP[i]
		if math.IsNaN(spo2) || math.IsNaN(hr) || math.IsNaN(sbp) {
			continue
		}
		if first {
			summary.MinSpO2 = spo2
			summary.MaxHR = hr
			summary.MinSBP = sbp
			summary.MaxSBP = sbp
			first = false
			continue
		}
		summary.MinSpO2 = math.Min(summary.MinSpO2, spo2)
		summary.MaxHR = math.Max(summary.MaxHR, hr)
		summary.MinSBP = math.Min(summary.MinSBP, sbp)
		summary.MaxSBP = math.Max(summary.MaxSBP, sbp)
	}

	return summary
}

// Evaluate 评估兜底规则
// 每条规则独立产生候选分数，最终取所有触发规则的最大值；
// 任一规则触发即返回 (decision, true)，调用方应跳过决策引擎
func (g *SafetyGate) Evaluate(summary models.RawVitalsSummary) (models.AlertDecision, bool) {
	var score float64
	var reasons []string

	switch {
	case summary.MinSpO2 < 90:
		score = math.Max(score, 95)
		reasons = append(reasons, fmt.Sprintf("SpO2 %.1f < 90", summary.MinSpO2))
	case summary.MinSpO2 < 92:
		score = math.Max(score, 80)
		reasons = append(reasons, fmt.Sprintf("SpO2 %.1f < 92", summary.MinSpO2))
	}

	switch {
	case summary.MaxHR > 140:
		score = math.Max(score, 95)
		reasons = append(reasons, fmt.Sprintf("HR %.1f > 140", summary.MaxHR))
	case summary.MaxHR > 120:
		score = math.Max(score, 75)
		reasons = append(reasons, fmt.Sprintf("HR %.1f > 120", summary.MaxHR))
	}

	switch {
	case summary.MinSBP < 90:
		score = math.Max(score, 95)
		reasons = append(reasons, fmt.Sprintf("SBP %.1f < 90", summary.MinSBP))
	case summary.MinSBP < 100:
		score = math.Max(score, 75)
		reasons = append(reasons, fmt.Sprintf("SBP %.1f < 100", summary.MinSBP))
	}

	if summary.MaxSBP > 180 {
		score = math.Max(score, 90)
		reasons = append(reasons, fmt.Sprintf("SBP %.1f > 180", summary.MaxSBP))
	}

	// 组合规则：中度缺氧 + 心动过速
	if summary.MinSpO2 < 94 && summary.MaxHR > 110 {
		score = math.Max(score, 85)
		reasons = append(reasons, fmt.Sprintf("combined low SpO2 (%.1f) + high HR (%.1f)", summary.MinSpO2, summary.MaxHR))
	}

	if len(reasons) == 0 {
		return models.AlertDecision{}, false
	}

	g.logger.Warn("Safety override triggered",
		zap.Float64("score", score),
		zap.Strings("reasons", reasons),
	)

	return models.AlertDecision{
		RiskScore:       score,
		Alert:           true,
		Explanation:     "SAFETY OVERRIDE: " + strings.Join(reasons, "; "),
		Stage:           models.StageSafetyOverride,
		AbnormalSignals: []string{},
	}, true
}
