package scorer

import (
	"context"
	"math"

	"ambulance-ews/internal/models"
)

// Scorer 异常评分器边界
// 引擎通过注入的接口同步调用评分器，自身不持有模型内部引用。
// 两个输出都在 [0,1]：anomaly_score 越高越异常，confidence 是信号质量估计
type Scorer interface {
	Score(ctx context.Context, w models.FeatureWindow) (anomalyScore, confidence float64, err error)
}

// clamp01 裁剪到 [0,1]
func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
