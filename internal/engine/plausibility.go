package engine

import "ambulance-ews/internal/models"

// checkPlausibility 生理合理性检查（阶段1）
// 独立于模型的传感器错误启发式：拒绝生理上不可能的组合
// 返回 (是否合理, 不合理原因)
func checkPlausibility(w models.FeatureWindow) (bool, string) {
	// 低心率 + 正常血氧：更可能是传感器脱落而不是急症
	if w.HRMean < hrLow && w.SpO2Mean > 95 {
		return false, "Implausible: Low HR with normal SpO2"
	}

	// 严重缺氧却没有代偿性心动过速，读数可疑
	if w.SpO2Mean < 90 && w.HRMean < 80 {
		return false, "Implausible: Severe hypoxia without tachycardia"
	}

	// 收缩压必须高于舒张压
	if w.SBPMean < w.DBPMean && w.SBPMean > 0 {
		return false, "Implausible: SBP < DBP (sensor error)"
	}

	return true, ""
}
