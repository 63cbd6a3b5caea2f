package engine

// 工程特征级联的阈值（与原始批次兜底门刻意不同：这里作用在清洗后的特征上）
const (
	spo2Critical = 88  // spo2_min 低于此值为危急缺氧
	spo2Warning  = 92  // spo2_mean 低于此值计为异常体征
	hrCritical   = 140 // hr_max 高于此值为危急心动过速
	hrWarning    = 120 // hr_mean 高于此值计为异常体征
	hrLow        = 50  // hr_mean 低于此值参与合理性检查
	sbpCritical  = 90  // sbp_mean 低于此值为危急低血压
	sbpWarning   = 100 // sbp_mean 低于此值计为异常体征

	spo2DropSlope = -0.5 // spo2_slope 低于此值视为持续下降
	hrRiseSlope   = 0.5  // hr_slope 高于此值视为持续上升

	motionMaxLimit = 1.0 // motion_max 高于此值视为高运动

	rawAlertThreshold = 70 // 综合风险分超过此值产生原始报警（进入时序确认）
)
