package httpapi

import (
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// Router 使用标准库 http.ServeMux（避免引入第三方路由依赖）
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// RegisterRoutes 注册预警服务路由
func (r *Router) RegisterRoutes(p *PredictHandler, a *AlertEventsHandler) {
	// 预测入口（与上游 API 契约对齐）
	r.Handle("/predict", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		p.Predict(w, req)
	})

	// 报警事件查询与导出
	r.Handle("/ews/api/v1/alert-events", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		a.ListAlertEvents(w, req)
	})
	r.Handle("/ews/api/v1/alert-events/export", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		a.ExportAlertEvents(w, req)
	})

	// 病人最新决策与会话重置（patients/{id}/decision、patients/{id}/reset）
	r.Handle("/ews/api/v1/patients/", func(w http.ResponseWriter, req *http.Request) {
		rest := strings.TrimPrefix(req.URL.Path, "/ews/api/v1/patients/")
		parts := strings.Split(rest, "/")
		if len(parts) != 2 || parts[0] == "" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		patientID, action := parts[0], parts[1]

		switch action {
		case "decision":
			if req.Method != http.MethodGet {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			p.GetLatestDecision(w, req, patientID)
		case "reset":
			if req.Method != http.MethodPost {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			p.ResetSession(w, req, patientID)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	// 健康检查
	r.Handle("/healthz", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
}
