package cleaner

import (
	"math"
	"sort"

	"ambulance-ews/internal/models"
)

const (
	medianWindow     = 5 // 居中滚动中值滤波窗口
	interpolateLimit = 5 // 最多插值的连续缺失样本数
	minConfidence    = 0.3
	maxConfidence    = 1.0
)

// Clean 清洗原始生命体征批次
// 步骤：HR/SpO2 滚动中值滤波 → 短缺失段线性插值 → 按运动强度计算置信度。
// 纯函数，不修改输入批次；输出与输入等长
func Clean(batch *models.VitalsBatch) *models.CleanBatch {
	out := &models.CleanBatch{
		PatientID:      batch.PatientID,
		TimeSec:        append([]int64(nil), batch.TimeSec...),
		SBP:            append([]float64(nil), batch.SBP...),
		DBP:            append([]float64(nil), batch.DBP...),
		Motion:         append([]float64(nil), batch.Motion...),
		HeartRateClean: rollingMedian(batch.HeartRate, medianWindow),
		SpO2Clean:      rollingMedian(batch.SpO2, medianWindow),
	}

	interpolate(out.HeartRateClean, interpolateLimit)
	interpolate(out.SpO2Clean, interpolateLimit)

	out.Confidence = make([]float64, len(batch.Motion))
	for i, m := range batch.Motion {
		out.Confidence[i] = confidenceFromMotion(m)
	}

	return out
}

// confidenceFromMotion 运动越强置信度越低：clip(exp(-motion), 0.3, 1.0)
func confidenceFromMotion(motion float64) float64 {
	if math.IsNaN(motion) {
		return minConfidence
	}
	c := math.Exp(-motion)
	if c < minConfidence {
		return minConfidence
	}
	if c > maxConfidence {
		return maxConfidence
	}
	return c
}

// rollingMedian 居中滚动中值（NaN 样本跳过；窗口内全为 NaN 时结果为 NaN）
func rollingMedian(series []float64, window int) []float64 {
	n := len(series)
	out := make([]float64, n)
	half := window / 2
	buf := make([]float64, 0, window)

	for i := 0; i < n; i++ {
		lo := i - half
		if lo < 0 {
			lo = 0
		}
		hi := i + half
		if hi >= n {
			hi = n - 1
		}

		buf = buf[:0]
		for j := lo; j <= hi; j++ {
			if !math.IsNaN(series[j]) {
				buf = append(buf, series[j])
			}
		}

		if len(buf) == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = median(buf)
	}

	return out
}

// median 就地排序求中值（buf 为临时缓冲）
func median(buf []float64) float64 {
	sort.Float64s(buf)
	mid := len(buf) / 2
	if len(buf)%2 == 1 {
		return buf[mid]
	}
	return (buf[mid-1] + buf[mid]) / 2
}

// interpolate 对 NaN 缺失段做线性插值（就地修改）
// 仅填补两侧都有有效值的缺失段，且每段最多填 limit 个样本；
// 开头/结尾的缺失段保持 NaN（由特征层的默认值兜住）
func interpolate(series []float64, limit int) {
	n := len(series)
	i := 0
	for i < n {
		if !math.IsNaN(series[i]) {
			i++
			continue
		}

		// 缺失段 [start, end)
		start := i
		for i < n && math.IsNaN(series[i]) {
			i++
		}
		end := i

		if start == 0 || end == n {
			continue // 缺少一侧端点，无法线性插值
		}

		left := series[start-1]
		right := series[end]
		gap := end - start
		step := (right - left) / float64(gap+1)

		fill := gap
		if fill > limit {
			fill = limit
		}
		for k := 0; k < fill; k++ {
			series[start+k] = left + step*float64(k+1)
		}
	}
}
