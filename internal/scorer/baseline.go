package scorer

import (
	"context"
	"math"

	"ambulance-ews/internal/models"
)

// BaselineScorer 内置基线评分器
// 不依赖外部模型服务：按正常生理基线的标准化偏离度打分，
// 让服务在模型不可用的部署里仍然可用。确定性、无状态
type BaselineScorer struct{}

// NewBaselineScorer 创建基线评分器
func NewBaselineScorer() *BaselineScorer {
	return &BaselineScorer{}
}

// 正常生理基线与离散尺度（成人，车载场景）
var baselines = []struct {
	value func(models.FeatureWindow) float64
	mean  float64
	scale float64
}{
	{func(w models.FeatureWindow) float64 { return w.HRMean }, 80, 20},
	{func(w models.FeatureWindow) float64 { return w.SpO2Mean }, 98, 3},
	{func(w models.FeatureWindow) float64 { return w.SBPMean }, 120, 20},
	{func(w models.FeatureWindow) float64 { return w.DBPMean }, 80, 15},
	{func(w models.FeatureWindow) float64 { return w.HRSlope }, 0, 0.5},
	{func(w models.FeatureWindow) float64 { return w.SpO2Slope }, 0, 0.3},
}

// Score 计算标准化偏离度的均值并压缩到 [0,1]
func (s *BaselineScorer) Score(_ context.Context, w models.FeatureWindow) (float64, float64, error) {
	var total float64
	for _, b := range baselines {
		z := math.Abs(b.value(w)-b.mean) / b.scale
		total += z
	}
	avg := total / float64(len(baselines))

	// 偏离 2 个尺度单位以上视为完全异常
	anomaly := clamp01(avg / 2)

	return anomaly, clamp01(w.ConfidenceMean), nil
}
