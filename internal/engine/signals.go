package engine

import "ambulance-ews/internal/models"

// countAbnormalSignals 统计异常体征（阶段3）
// 各项独立判断，返回 (数量, 有序标签列表)
func countAbnormalSignals(w models.FeatureWindow) (int, []string) {
	abnormal := []string{}

	if w.SpO2Mean < spo2Warning {
		abnormal = append(abnormal, "spo2_low")
	}
	if w.SpO2Min < spo2Critical {
		abnormal = append(abnormal, "spo2_critical")
	}
	if w.HRMean > hrWarning {
		abnormal = append(abnormal, "hr_high")
	}
	if w.HRMax > hrCritical {
		abnormal = append(abnormal, "hr_critical")
	}
	if w.SBPMean < sbpWarning {
		abnormal = append(abnormal, "sbp_low")
	}

	// 趋势恶化
	if w.SpO2Slope < spo2DropSlope {
		abnormal = append(abnormal, "spo2_dropping")
	}
	if w.HRSlope > hrRiseSlope {
		abnormal = append(abnormal, "hr_rising")
	}

	return len(abnormal), abnormal
}

// assessMotionArtifact 运动伪影判断（阶段4）
// 返回 (是否高运动, motion_std)
func assessMotionArtifact(w models.FeatureWindow, motionThreshold float64) (bool, float64) {
	highMotion := w.MotionStd > motionThreshold || w.MotionMax > motionMaxLimit
	return highMotion, w.MotionStd
}
