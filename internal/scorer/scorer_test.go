package scorer_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ambulance-ews/internal/models"
	"ambulance-ews/internal/scorer"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func baselineWindow() models.FeatureWindow {
	return models.FeatureWindow{
		HRMean:         80,
		SpO2Mean:       98,
		SBPMean:        120,
		DBPMean:        80,
		HRSlope:        0,
		SpO2Slope:      0,
		ConfidenceMean: 0.9,
	}
}

func TestBaselineScorer_NormalWindowScoresLow(t *testing.T) {
	s := scorer.NewBaselineScorer()

	// 完全处于基线上的窗口偏离度为零
	anomaly, confidence, err := s.Score(context.Background(), baselineWindow())
	require.NoError(t, err)
	require.Equal(t, 0.0, anomaly)
	require.Equal(t, 0.9, confidence)
}

func TestBaselineScorer_DeviationRaisesScore(t *testing.T) {
	s := scorer.NewBaselineScorer()

	w := baselineWindow()
	w.SpO2Mean = 86 // 偏离 4 个尺度单位
	w.HRMean = 140  // 偏离 3 个尺度单位

	anomaly, _, err := s.Score(context.Background(), w)
	require.NoError(t, err)
	// (4+3)/6 项平均 ≈ 1.17，再除 2 压缩
	require.InDelta(t, 7.0/6.0/2.0, anomaly, 1e-9)
}

func TestBaselineScorer_ScoreClampedToOne(t *testing.T) {
	s := scorer.NewBaselineScorer()

	w := baselineWindow()
	w.SpO2Mean = 50
	w.HRMean = 200
	w.SBPMean = 40
	w.SpO2Slope = -5

	anomaly, _, err := s.Score(context.Background(), w)
	require.NoError(t, err)
	require.Equal(t, 1.0, anomaly)
}

func TestBaselineScorer_Deterministic(t *testing.T) {
	s := scorer.NewBaselineScorer()
	w := baselineWindow()
	w.HRMean = 130

	a1, c1, err := s.Score(context.Background(), w)
	require.NoError(t, err)
	a2, c2, err := s.Score(context.Background(), w)
	require.NoError(t, err)
	require.Equal(t, a1, a2)
	require.Equal(t, c1, c2)
}

func TestRemoteScorer_Success(t *testing.T) {
	var received models.FeatureWindow
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/score", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(scorer.RemoteScoreResponse{AnomalyScore: 0.75, Confidence: 0.85})
	}))
	defer server.Close()

	s := scorer.NewRemoteScorer(server.URL, 2*time.Second, 0, zap.NewNop())

	fw := baselineWindow()
	fw.TimeSec = 30
	anomaly, confidence, err := s.Score(context.Background(), fw)
	require.NoError(t, err)
	require.Equal(t, 0.75, anomaly)
	require.Equal(t, 0.85, confidence)
	require.Equal(t, int64(30), received.TimeSec)
}

func TestRemoteScorer_ClampsOutOfRangeResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(scorer.RemoteScoreResponse{AnomalyScore: 3.5, Confidence: -0.2})
	}))
	defer server.Close()

	s := scorer.NewRemoteScorer(server.URL, 2*time.Second, 0, zap.NewNop())

	anomaly, confidence, err := s.Score(context.Background(), baselineWindow())
	require.NoError(t, err)
	require.Equal(t, 1.0, anomaly)
	require.Equal(t, 0.0, confidence)
}

func TestRemoteScorer_ServerErrorReturnsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model crashed", http.StatusInternalServerError)
	}))
	defer server.Close()

	s := scorer.NewRemoteScorer(server.URL, 2*time.Second, 0, zap.NewNop())

	_, _, err := s.Score(context.Background(), baselineWindow())
	require.Error(t, err)
	require.Contains(t, err.Error(), "status 500")
}

func TestRemoteScorer_UnreachableServerReturnsError(t *testing.T) {
	s := scorer.NewRemoteScorer("http://127.0.0.1:1", time.Second, 0, zap.NewNop())

	_, _, err := s.Score(context.Background(), baselineWindow())
	require.Error(t, err)
}
