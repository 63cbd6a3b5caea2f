package models

import "math"

// 特征缺失时的生理默认值（偏向不报警，缺数据不能制造危急）
const (
	DefaultHRMean         = 70
	DefaultHRMax          = 100
	DefaultSpO2Mean       = 100
	DefaultSpO2Min        = 100
	DefaultSBPMean        = 120
	DefaultDBPMean        = 80
	DefaultSlope          = 0
	DefaultMotion         = 0
	DefaultConfidenceMean = 1
)

// FeatureWindow 一个滑动窗口的特征摘要（窗口一旦生成即不可变）
type FeatureWindow struct {
	TimeSec        int64   `json:"time_sec"`
	HRMean         float64 `json:"hr_mean"`
	HRSlope        float64 `json:"hr_slope"`
	HRMax          float64 `json:"hr_max"`
	SpO2Mean       float64 `json:"spo2_mean"`
	SpO2Slope      float64 `json:"spo2_slope"`
	SpO2Min        float64 `json:"spo2_min"`
	SBPMean        float64 `json:"sbp_mean"`
	DBPMean        float64 `json:"dbp_mean"`
	MotionMean     float64 `json:"motion_mean"`
	MotionStd      float64 `json:"motion_std"`
	MotionMax      float64 `json:"motion_max"`
	ConfidenceMean float64 `json:"confidence_mean"`
}

// DefaultFeatureWindow 全默认值窗口（所有字段取生理默认值）
func DefaultFeatureWindow() FeatureWindow {
	return FeatureWindow{
		HRMean:         DefaultHRMean,
		HRMax:          DefaultHRMax,
		SpO2Mean:       DefaultSpO2Mean,
		SpO2Min:        DefaultSpO2Min,
		SBPMean:        DefaultSBPMean,
		DBPMean:        DefaultDBPMean,
		ConfidenceMean: DefaultConfidenceMean,
	}
}

// Sanitized 返回用默认值替换 NaN/Inf 后的副本
// 默认值在窗口构造时统一应用，下游级联不再逐项判断缺失
func (w FeatureWindow) Sanitized() FeatureWindow {
	def := DefaultFeatureWindow()
	w.HRMean = orDefault(w.HRMean, def.HRMean)
	w.HRSlope = orDefault(w.HRSlope, DefaultSlope)
	w.HRMax = orDefault(w.HRMax, def.HRMax)
	w.SpO2Mean = orDefault(w.SpO2Mean, def.SpO2Mean)
	w.SpO2Slope = orDefault(w.SpO2Slope, DefaultSlope)
	w.SpO2Min = orDefault(w.SpO2Min, def.SpO2Min)
	w.SBPMean = orDefault(w.SBPMean, def.SBPMean)
	w.DBPMean = orDefault(w.DBPMean, def.DBPMean)
	w.MotionMean = orDefault(w.MotionMean, DefaultMotion)
	w.MotionStd = orDefault(w.MotionStd, DefaultMotion)
	w.MotionMax = orDefault(w.MotionMax, DefaultMotion)
	w.ConfidenceMean = orDefault(w.ConfidenceMean, def.ConfidenceMean)
	return w
}

func orDefault(v, def float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return def
	}
	return v
}

// ScoredWindow 特征窗口 + 外部异常评分器的输出（不可变）
type ScoredWindow struct {
	FeatureWindow
	AnomalyScore float64 `json:"anomaly_score"` // [0,1]，越高越异常
	Confidence   float64 `json:"confidence"`    // [0,1]，信号质量估计
}
