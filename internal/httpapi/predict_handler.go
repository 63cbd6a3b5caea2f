package httpapi

import (
	"net/http"
	"time"

	"ambulance-ews/internal/consumer"
	"ambulance-ews/internal/engine"
	"ambulance-ews/internal/models"
	"ambulance-ews/internal/repository"

	"go.uber.org/zap"
)

const maxPredictBodyBytes = 4 << 20 // 原始批次最大 4MB

// PredictHandler 预测入口处理器
// POST /predict 走与流式消费者相同的处理管道，同步返回决策
type PredictHandler struct {
	pipeline   *engine.Pipeline
	eventsRepo *repository.AlertEventsRepository
	cache      *consumer.CacheManager
	logger     *zap.Logger
}

// NewPredictHandler 创建预测处理器
func NewPredictHandler(
	pipeline *engine.Pipeline,
	eventsRepo *repository.AlertEventsRepository,
	cache *consumer.CacheManager,
	logger *zap.Logger,
) *PredictHandler {
	return &PredictHandler{
		pipeline:   pipeline,
		eventsRepo: eventsRepo,
		cache:      cache,
		logger:     logger,
	}
}

// Predict 处理一次预测请求
func (h *PredictHandler) Predict(w http.ResponseWriter, r *http.Request) {
	var batch models.VitalsBatch
	if err := readBodyJSON(r, maxPredictBodyBytes, &batch); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body: "+err.Error()))
		return
	}

	// 单病人部署的旧客户端不带 patient_id，落到固定会话
	if batch.PatientID == "" {
		batch.PatientID = "default"
	}

	if err := batch.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail(err.Error()))
		return
	}

	ctx := r.Context()
	result, err := h.pipeline.Process(ctx, &batch)
	if err != nil {
		h.logger.Error("Predict pipeline failed",
			zap.String("patient_id", batch.PatientID),
			zap.Error(err),
		)
		writeJSON(w, http.StatusBadGateway, Fail("prediction failed: "+err.Error()))
		return
	}

	// 持久化与缓存失败不影响响应（决策已经算出，调用方必须拿到结果）
	if h.eventsRepo != nil {
		if _, err := h.eventsRepo.CreateFromDecision(ctx, batch.PatientID, result.Decision, result.SafetyOverride, time.Now()); err != nil {
			h.logger.Error("Failed to persist alert event",
				zap.String("patient_id", batch.PatientID),
				zap.Error(err),
			)
		}
	}
	if h.cache != nil {
		cached := consumer.CachedDecision{
			PatientID:      batch.PatientID,
			Decision:       result.Decision,
			SafetyOverride: result.SafetyOverride,
			Confidence:     result.Confidence,
			UpdatedAt:      time.Now().Unix(),
		}
		if err := h.cache.UpdateDecision(ctx, batch.PatientID, cached); err != nil {
			h.logger.Error("Failed to update decision cache",
				zap.String("patient_id", batch.PatientID),
				zap.Error(err),
			)
		}
		if result.Decision.Alert {
			if err := h.cache.PublishAlert(ctx, batch.PatientID, cached); err != nil {
				h.logger.Error("Failed to publish alert",
					zap.String("patient_id", batch.PatientID),
					zap.Error(err),
				)
			}
		}
	}

	writeJSON(w, http.StatusOK, models.PredictResponse{
		Anomaly:        result.Decision.Alert,
		RiskScore:      result.Decision.RiskScore,
		Confidence:     result.Confidence,
		SafetyOverride: result.SafetyOverride,
	})
}

// GetLatestDecision 读取病人的最新决策缓存
func (h *PredictHandler) GetLatestDecision(w http.ResponseWriter, r *http.Request, patientID string) {
	if h.cache == nil {
		writeJSON(w, http.StatusServiceUnavailable, Fail("decision cache not available"))
		return
	}

	cached, err := h.cache.GetDecision(r.Context(), patientID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, Fail(err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, Ok(cached))
}

// ResetSession 重置病人会话（清空时序缓冲区；新病人复用连接时调用）
func (h *PredictHandler) ResetSession(w http.ResponseWriter, r *http.Request, patientID string) {
	h.pipeline.Engine().Sessions().Reset(patientID)

	h.logger.Info("Session reset requested",
		zap.String("patient_id", patientID),
	)

	writeJSON(w, http.StatusOK, Ok(map[string]string{"patient_id": patientID}))
}
