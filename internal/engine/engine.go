package engine

import (
	"fmt"
	"math"
	"strings"

	"ambulance-ews/internal/config"
	"ambulance-ews/internal/models"

	"go.uber.org/zap"
)

// Engine 风险决策引擎
// 在兜底门未触发时，对每个评分窗口执行严格有序的过滤级联：
// 合理性 → 危急状态 → 异常体征数 → 运动伪影 → 置信度 → 综合评分 → 时序确认。
// 先到达结论的阶段终止评估，之后的阶段不再执行。
// 所有阶段都是输入加缓冲区的纯函数，结构良好的输入不会出错。
type Engine struct {
	sessions *SessionManager
	logger   *zap.Logger
}

// NewEngine 创建决策引擎
func NewEngine(cfg config.EngineConfig, logger *zap.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid engine config: %w", err)
	}
	return &Engine{
		sessions: NewSessionManager(cfg, logger),
		logger:   logger,
	}, nil
}

// Sessions 会话管理器（供服务层启动清扫协程 / 重置会话）
func (e *Engine) Sessions() *SessionManager {
	return e.sessions
}

// Evaluate 评估单个窗口，产出报警决策
// 同一病人的评估持会话锁串行执行；不同病人可并发调用。
// 窗口必须按 time_sec 非递减到达，乱序属于调用方契约违规（记日志但照常评估）
func (e *Engine) Evaluate(patientID string, sw models.ScoredWindow) models.AlertDecision {
	session := e.sessions.GetOrCreate(patientID)

	session.mu.Lock()
	defer session.mu.Unlock()

	if sw.TimeSec < session.lastTimeSec {
		e.logger.Warn("Out-of-order window delivery",
			zap.String("patient_id", patientID),
			zap.Int64("window_time", sw.TimeSec),
			zap.Int64("last_time", session.lastTimeSec),
		)
	}
	session.lastTimeSec = sw.TimeSec
	session.lastSeen = e.sessions.now()

	decision := e.runCascade(session, sw)

	e.logger.Debug("Window evaluated",
		zap.String("patient_id", patientID),
		zap.Int64("window_time", sw.TimeSec),
		zap.String("stage", string(decision.Stage)),
		zap.Float64("risk_score", decision.RiskScore),
		zap.Bool("alert", decision.Alert),
	)

	return decision
}

// runCascade 执行过滤级联（调用方必须已持有会话锁）
func (e *Engine) runCascade(session *PatientSession, sw models.ScoredWindow) models.AlertDecision {
	w := sw.FeatureWindow.Sanitized()
	cfg := session.cfg

	// 阶段1：生理合理性
	if plausible, reason := checkPlausibility(w); !plausible {
		return models.AlertDecision{
			RiskScore:       0,
			Alert:           false,
			Explanation:     "Suppressed: " + reason,
			Stage:           models.StagePlausibilityFailed,
			AbnormalSignals: []string{},
		}
	}

	// 阶段2：危急状态（命中且开关打开时立即报警，绕过时序确认）
	isCritical, criticalReason := checkCritical(w)
	if isCritical && cfg.CriticalOverrideEnabled {
		return models.AlertDecision{
			RiskScore:       95 + sw.AnomalyScore*5, // [95,100]
			Alert:           true,
			Explanation:     "CRITICAL: " + criticalReason,
			Stage:           models.StageCriticalOverride,
			AbnormalSignals: []string{},
		}
	}

	// 阶段3：异常体征数
	abnormalCount, abnormalSignals := countAbnormalSignals(w)
	if abnormalCount < cfg.MinAbnormalSignals {
		return models.AlertDecision{
			RiskScore:       sw.AnomalyScore * 50,
			Alert:           false,
			Explanation:     fmt.Sprintf("Suppressed: Only %d abnormal signal(s)", abnormalCount),
			Stage:           models.StageInsufficientSignals,
			AbnormalSignals: abnormalSignals,
		}
	}

	// 阶段4：运动伪影抑制（危急状态已在上面排除）
	if highMotion, motionLevel := assessMotionArtifact(w, cfg.MotionThreshold); highMotion && !isCritical {
		return models.AlertDecision{
			RiskScore:       sw.AnomalyScore * 40,
			Alert:           false,
			Explanation:     fmt.Sprintf("Suppressed: High motion (std=%.2f)", motionLevel),
			Stage:           models.StageMotionArtifact,
			AbnormalSignals: abnormalSignals,
		}
	}

	// 阶段5：置信度门
	if sw.Confidence < cfg.MinConfidence && !isCritical {
		return models.AlertDecision{
			RiskScore:       sw.AnomalyScore * 60,
			Alert:           false,
			Explanation:     fmt.Sprintf("Suppressed: Low confidence (%.2f)", sw.Confidence),
			Stage:           models.StageLowConfidence,
			AbnormalSignals: abnormalSignals,
		}
	}

	// 阶段6：综合评分
	baseRisk := sw.AnomalyScore * 100
	signalBoost := math.Min(float64(abnormalCount)*5, 20)
	riskScore := math.Min(baseRisk+signalBoost, 100)

	// 阶段7：时序确认（要求持续异常才报警）
	rawAlert := riskScore > rawAlertThreshold
	confirmed := session.buffer.Push(rawAlert)

	if confirmed {
		top := abnormalSignals
		if len(top) > 3 {
			top = top[:3]
		}
		return models.AlertDecision{
			RiskScore:       riskScore,
			Alert:           true,
			Explanation:     fmt.Sprintf("Alert: %d abnormal signals - %s", len(abnormalSignals), strings.Join(top, ", ")),
			Stage:           models.StageConfirmedAlert,
			AbnormalSignals: abnormalSignals,
		}
	}

	return models.AlertDecision{
		RiskScore:       riskScore,
		Alert:           false,
		Explanation:     "Monitoring: Awaiting confirmation",
		Stage:           models.StageAwaitingConfirmation,
		AbnormalSignals: abnormalSignals,
	}
}
