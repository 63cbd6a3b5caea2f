package engine

import (
	"context"
	"fmt"

	"ambulance-ews/internal/cleaner"
	"ambulance-ews/internal/features"
	"ambulance-ews/internal/models"
	"ambulance-ews/internal/scorer"

	"go.uber.org/zap"
)

// PipelineResult 一次批次处理的结果
// Decision 是批次内最后一个窗口的决策（兜底触发时为兜底决策）
type PipelineResult struct {
	Decision       models.AlertDecision
	SafetyOverride bool
	Confidence     float64 // 响应中的信号质量（清洗批次置信度均值或最后窗口的模型置信度）
	WindowCount    int
}

// Pipeline 批次处理管道：清洗 → 兜底门 → 特征提取 → 异常评分 → 决策级联
// HTTP /predict 与流式消费者共用同一条管道
type Pipeline struct {
	gate      *SafetyGate
	engine    *Engine
	extractor *features.Extractor
	scorer    scorer.Scorer
	logger    *zap.Logger
}

// NewPipeline 创建处理管道
func NewPipeline(gate *SafetyGate, eng *Engine, extractor *features.Extractor, sc scorer.Scorer, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		gate:      gate,
		engine:    eng,
		extractor: extractor,
		scorer:    sc,
		logger:    logger,
	}
}

// Engine 底层决策引擎（供服务层访问会话管理器）
func (p *Pipeline) Engine() *Engine {
	return p.engine
}

// Process 处理一个原始批次
// 兜底门在特征提取之前评估并短路；评分器失败以错误上浮（上游显式处理，
// 不落成默认决策）。批次为空或样本不足时返回零风险决策，从不视为致命
func (p *Pipeline) Process(ctx context.Context, batch *models.VitalsBatch) (*PipelineResult, error) {
	if err := batch.Validate(); err != nil {
		return nil, fmt.Errorf("invalid vitals batch: %w", err)
	}

	clean := cleaner.Clean(batch)

	// 安全兜底：对原始批次做硬阈值检查，触发即短路整个决策引擎
	summary := p.gate.Summarize(batch)
	if decision, triggered := p.gate.Evaluate(summary); triggered {
		return &PipelineResult{
			Decision:       decision,
			SafetyOverride: true,
			Confidence:     meanConfidence(clean),
		}, nil
	}

	windows := p.extractor.Extract(clean)
	if len(windows) == 0 {
		p.logger.Warn("No feature windows produced",
			zap.String("patient_id", batch.PatientID),
			zap.Int("samples", batch.Len()),
		)
		return &PipelineResult{
			Decision: models.AlertDecision{
				RiskScore:       0,
				Alert:           false,
				Explanation:     "No feature windows produced",
				Stage:           models.StageInsufficientSignals,
				AbnormalSignals: []string{},
			},
			Confidence: meanConfidence(clean),
		}, nil
	}

	// 批次内每个窗口都喂给引擎（时序缓冲区依赖逐窗评估），返回最后一个决策
	var result PipelineResult
	for _, w := range windows {
		anomaly, confidence, err := p.scorer.Score(ctx, w)
		if err != nil {
			return nil, fmt.Errorf("anomaly scoring failed: %w", err)
		}

		sw := models.ScoredWindow{
			FeatureWindow: w,
			AnomalyScore:  anomaly,
			Confidence:    confidence,
		}
		result.Decision = p.engine.Evaluate(batch.PatientID, sw)
		result.Confidence = confidence
		result.WindowCount++
	}

	return &result, nil
}

func meanConfidence(clean *models.CleanBatch) float64 {
	if clean.Len() == 0 {
		return 0
	}
	var sum float64
	for _, c := range clean.Confidence {
		sum += c
	}
	return sum / float64(clean.Len())
}
