package engine

import "ambulance-ews/internal/models"

// checkCritical 危急状态检查（阶段2）
// 作用在工程特征上，阈值与原始批次兜底门不同（清洗后收紧）
// 命中即绕过后续所有阶段（包括时序确认）
func checkCritical(w models.FeatureWindow) (bool, string) {
	// 严重低氧血症
	if w.SpO2Min < spo2Critical {
		return true, "Critical hypoxemia (SpO2 < 88%)"
	}

	// 极端心动过速
	if w.HRMax > hrCritical {
		return true, "Critical tachycardia (HR > 140)"
	}

	// 严重低血压
	if w.SBPMean < sbpCritical {
		return true, "Critical hypotension (SBP < 90)"
	}

	// 组合性心肺负荷（中度缺氧 + 心率升高）
	if w.SpO2Mean < spo2Warning && w.HRMean > hrWarning {
		return true, "Combined cardiopulmonary stress"
	}

	return false, ""
}
