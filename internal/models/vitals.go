package models

import (
	"fmt"
)

// VitalsBatch 一次上报的原始生命体征批次（1Hz 采样，数组按 time_sec 对齐）
// 来源可以是 HTTP /predict 请求体，也可以是 MQTT → Redis Streams 的设备消息
type VitalsBatch struct {
	PatientID string    `json:"patient_id"`
	TimeSec   []int64   `json:"time_sec"`
	HeartRate []float64 `json:"heart_rate"`
	SpO2      []float64 `json:"spo2"`
	SBP       []float64 `json:"sbp"`
	DBP       []float64 `json:"dbp"`
	Motion    []float64 `json:"motion"`
}

// Validate 校验批次结构（数组长度必须一致）
func (b *VitalsBatch) Validate() error {
	if b.PatientID == "" {
		return fmt.Errorf("patient_id is required")
	}
	n := len(b.TimeSec)
	if len(b.HeartRate) != n || len(b.SpO2) != n || len(b.SBP) != n || len(b.DBP) != n || len(b.Motion) != n {
		return fmt.Errorf("vitals arrays length mismatch: time=%d hr=%d spo2=%d sbp=%d dbp=%d motion=%d",
			n, len(b.HeartRate), len(b.SpO2), len(b.SBP), len(b.DBP), len(b.Motion))
	}
	return nil
}

// Len 批次样本数
func (b *VitalsBatch) Len() int {
	return len(b.TimeSec)
}

// CleanBatch 清洗后的批次（滚动中值滤波 + 插值 + 置信度）
// HeartRateClean/SpO2Clean 与原始数组等长；Confidence 由运动强度推导
type CleanBatch struct {
	PatientID      string
	TimeSec        []int64
	HeartRateClean []float64
	SpO2Clean      []float64
	SBP            []float64
	DBP            []float64
	Motion         []float64
	Confidence     []float64
}

// Len 清洗后样本数
func (b *CleanBatch) Len() int {
	return len(b.TimeSec)
}

// RawVitalsSummary 安全兜底门使用的原始批次聚合（每次请求计算一次，不持久化）
type RawVitalsSummary struct {
	MinSpO2 float64
	MaxHR   float64
	MinSBP  float64
	MaxSBP  float64
}

// NoOverrideSummary 空批次时的默认聚合（不触发任何兜底规则）
func NoOverrideSummary() RawVitalsSummary {
	return RawVitalsSummary{
		MinSpO2: 100,
		MaxHR:   60,
		MinSBP:  120,
		MaxSBP:  120,
	}
}
