package scorer

import (
	"context"
	"fmt"
	"time"

	"ambulance-ews/internal/models"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// RemoteScoreResponse 模型服务响应
type RemoteScoreResponse struct {
	AnomalyScore float64 `json:"anomaly_score"`
	Confidence   float64 `json:"confidence"`
}

// RemoteScorer 远程异常模型客户端
// 模型作为独立服务部署时使用；评分失败以显式错误上浮，
// 不允许被洗成默认决策（兜底门不依赖本层，危急读数仍会报警）
type RemoteScorer struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

// NewRemoteScorer 创建远程评分客户端
func NewRemoteScorer(baseURL string, timeout time.Duration, retryCount int, logger *zap.Logger) *RemoteScorer {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(retryCount).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(3 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &RemoteScorer{
		httpClient: client,
		logger:     logger,
	}
}

// Score 调用模型服务对单个特征窗口评分
func (s *RemoteScorer) Score(ctx context.Context, w models.FeatureWindow) (float64, float64, error) {
	var result RemoteScoreResponse
	resp, err := s.httpClient.R().
		SetContext(ctx).
		SetBody(w).
		SetResult(&result).
		Post("/score")

	if err != nil {
		s.logger.Error("Anomaly model call failed",
			zap.Int64("window_time", w.TimeSec),
			zap.Error(err),
		)
		return 0, 0, fmt.Errorf("failed to call anomaly model: %w", err)
	}

	if resp.IsError() {
		s.logger.Error("Anomaly model returned error",
			zap.Int("status_code", resp.StatusCode()),
			zap.Int64("window_time", w.TimeSec),
		)
		return 0, 0, fmt.Errorf("anomaly model error: status %d", resp.StatusCode())
	}

	return clamp01(result.AnomalyScore), clamp01(result.Confidence), nil
}
