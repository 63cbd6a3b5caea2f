package engine

import (
	"context"
	"sync"
	"time"

	"ambulance-ews/internal/config"

	"go.uber.org/zap"
)

// PatientSession 单个病人的决策会话
// 独占持有该病人的时序缓冲区；同一病人的窗口必须串行评估（见 mu）
type PatientSession struct {
	PatientID string

	mu          sync.Mutex
	buffer      *TemporalAlertBuffer
	cfg         config.EngineConfig // 会话创建时快照，之后的全局配置变更不影响已有会话
	lastSeen    time.Time
	lastTimeSec int64
}

// SessionManager 会话表（patient_id → PatientSession）
// 会话在首次观察到病人时惰性创建；访问需加锁（并发消费者/HTTP 同时触达）
type SessionManager struct {
	mu       sync.Mutex
	sessions map[string]*PatientSession
	cfg      config.EngineConfig
	idleTTL  time.Duration
	logger   *zap.Logger
	now      func() time.Time // 测试注入
}

// NewSessionManager 创建会话管理器
func NewSessionManager(cfg config.EngineConfig, logger *zap.Logger) *SessionManager {
	return &SessionManager{
		sessions: make(map[string]*PatientSession),
		cfg:      cfg,
		idleTTL:  time.Duration(cfg.SessionIdleTTLSec) * time.Second,
		logger:   logger,
		now:      time.Now,
	}
}

// GetOrCreate 获取或惰性创建病人会话
func (m *SessionManager) GetOrCreate(patientID string) *PatientSession {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[patientID]; ok {
		return s
	}

	s := &PatientSession{
		PatientID: patientID,
		buffer:    NewTemporalAlertBuffer(m.cfg.TemporalBufferSize),
		cfg:       m.cfg,
		lastSeen:  m.now(),
	}
	m.sessions[patientID] = s

	m.logger.Info("Patient session created",
		zap.String("patient_id", patientID),
		zap.Int("temporal_buffer_size", m.cfg.TemporalBufferSize),
	)

	return s
}

// Reset 重置病人会话（清空时序缓冲区；连接被新病人复用时调用）
func (m *SessionManager) Reset(patientID string) {
	m.mu.Lock()
	s, ok := m.sessions[patientID]
	m.mu.Unlock()

	if !ok {
		return
	}

	s.mu.Lock()
	s.buffer.Reset()
	s.lastTimeSec = 0
	s.mu.Unlock()

	m.logger.Info("Patient session reset",
		zap.String("patient_id", patientID),
	)
}

// Remove 销毁病人会话（流结束时调用）
func (m *SessionManager) Remove(patientID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, patientID)
}

// Count 当前会话数
func (m *SessionManager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// StartJanitor 启动空闲会话清扫协程
// 长时间离线病人的缓冲区不能无限保留：超过 idleTTL 未收到窗口即驱逐。
// 驱逐后病人重新出现时从空缓冲区重新开始确认（保守方向）
func (m *SessionManager) StartJanitor(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.sweepIdle()
			}
		}
	}()
}

// sweepIdle 驱逐空闲超时的会话
func (m *SessionManager) sweepIdle() {
	cutoff := m.now().Add(-m.idleTTL)

	m.mu.Lock()
	var evicted []string
	for id, s := range m.sessions {
		s.mu.Lock()
		idle := s.lastSeen.Before(cutoff)
		s.mu.Unlock()
		if idle {
			delete(m.sessions, id)
			evicted = append(evicted, id)
		}
	}
	m.mu.Unlock()

	if len(evicted) > 0 {
		m.logger.Info("Evicted idle patient sessions",
			zap.Strings("patient_ids", evicted),
			zap.Duration("idle_ttl", m.idleTTL),
		)
	}
}
