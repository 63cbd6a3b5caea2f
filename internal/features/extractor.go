package features

import (
	"math"

	"ambulance-ews/internal/models"
)

const (
	// DefaultWindowSize 滑动窗口长度（秒，1Hz 采样即样本数）
	DefaultWindowSize = 30
	// DefaultStepSize 滑动步长
	DefaultStepSize = 5
	// MinSamples 产出特征窗口所需的最少样本数
	MinSamples = 3
)

// Extractor 滑动窗口特征提取器
type Extractor struct {
	WindowSize int
	StepSize   int
}

// NewExtractor 创建默认参数的提取器
func NewExtractor() *Extractor {
	return &Extractor{
		WindowSize: DefaultWindowSize,
		StepSize:   DefaultStepSize,
	}
}

// Extract 从清洗后的批次提取特征窗口序列
// 样本数不足 MinSamples 时返回空（上游对该区间不调用决策引擎）；
// 批次短于一个窗口时退化为单个自适应窗口
func (e *Extractor) Extract(batch *models.CleanBatch) []models.FeatureWindow {
	n := batch.Len()
	if n < MinSamples {
		return nil
	}

	if n <= e.WindowSize {
		return []models.FeatureWindow{e.window(batch, 0, n)}
	}

	var windows []models.FeatureWindow
	for start := 0; start <= n-e.WindowSize; start += e.StepSize {
		windows = append(windows, e.window(batch, start, start+e.WindowSize))
	}
	return windows
}

// window 计算 [start, end) 区间的特征摘要
// 缺失值（NaN）不参与统计；字段全缺失时由 Sanitized 在窗口构造时落到生理默认值
func (e *Extractor) window(batch *models.CleanBatch, start, end int) models.FeatureWindow {
	hr := batch.HeartRateClean[start:end]
	spo2 := batch.SpO2Clean[start:end]

	w := models.FeatureWindow{
		TimeSec:        batch.TimeSec[end-1],
		HRMean:         mean(hr),
		HRSlope:        slope(hr),
		HRMax:          maxOf(hr),
		SpO2Mean:       mean(spo2),
		SpO2Slope:      slope(spo2),
		SpO2Min:        minOf(spo2),
		SBPMean:        mean(batch.SBP[start:end]),
		DBPMean:        mean(batch.DBP[start:end]),
		MotionMean:     mean(batch.Motion[start:end]),
		MotionStd:      std(batch.Motion[start:end]),
		MotionMax:      maxOf(batch.Motion[start:end]),
		ConfidenceMean: mean(batch.Confidence[start:end]),
	}
	return w.Sanitized()
}

func mean(series []float64) float64 {
	var sum float64
	var count int
	for _, v := range series {
		if math.IsNaN(v) {
			continue
		}
		sum += v
		count++
	}
	if count == 0 {
		return math.NaN()
	}
	return sum / float64(count)
}

// std 总体标准差（与均值同样跳过缺失值）
func std(series []float64) float64 {
	m := mean(series)
	if math.IsNaN(m) {
		return math.NaN()
	}
	var sum float64
	var count int
	for _, v := range series {
		if math.IsNaN(v) {
			continue
		}
		d := v - m
		sum += d * d
		count++
	}
	return math.Sqrt(sum / float64(count))
}

func minOf(series []float64) float64 {
	out := math.NaN()
	for _, v := range series {
		if math.IsNaN(v) {
			continue
		}
		if math.IsNaN(out) || v < out {
			out = v
		}
	}
	return out
}

func maxOf(series []float64) float64 {
	out := math.NaN()
	for _, v := range series {
		if math.IsNaN(v) {
			continue
		}
		if math.IsNaN(out) || v > out {
			out = v
		}
	}
	return out
}

// slope 最小二乘线性趋势（x 为样本序号；有效点不足 2 个时为 0）
func slope(series []float64) float64 {
	var sumX, sumY, sumXY, sumXX float64
	var count int
	for i, v := range series {
		if math.IsNaN(v) {
			continue
		}
		x := float64(i)
		sumX += x
		sumY += v
		sumXY += x * v
		sumXX += x * x
		count++
	}
	if count < 2 {
		return 0
	}
	n := float64(count)
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	return (n*sumXY - sumX*sumY) / denom
}
