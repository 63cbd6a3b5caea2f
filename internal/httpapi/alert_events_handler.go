package httpapi

import (
	"fmt"
	"net/http"
	"time"

	"ambulance-ews/internal/repository"

	"go.uber.org/zap"
)

// AlertEventsHandler 报警事件查询与导出处理器
type AlertEventsHandler struct {
	eventsRepo *repository.AlertEventsRepository
	logger     *zap.Logger
}

// NewAlertEventsHandler 创建报警事件处理器
func NewAlertEventsHandler(eventsRepo *repository.AlertEventsRepository, logger *zap.Logger) *AlertEventsHandler {
	return &AlertEventsHandler{
		eventsRepo: eventsRepo,
		logger:     logger,
	}
}

// parseFilters 从查询参数构造过滤条件
func parseFilters(r *http.Request) repository.AlertEventFilters {
	q := r.URL.Query()
	filters := repository.AlertEventFilters{
		Limit: parseInt(q.Get("limit"), 100),
	}

	if v := q.Get("patient_id"); v != "" {
		filters.PatientID = &v
	}
	if v := q.Get("stage"); v != "" {
		filters.Stage = &v
	}
	if v := q.Get("alert"); v != "" {
		alert := v == "true"
		filters.Alert = &alert
	}
	if v := q.Get("start_time"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			filters.StartTime = &t
		}
	}
	if v := q.Get("end_time"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			filters.EndTime = &t
		}
	}

	return filters
}

// ListAlertEvents 按过滤条件查询报警事件
func (h *AlertEventsHandler) ListAlertEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.eventsRepo.ListAlertEvents(r.Context(), parseFilters(r))
	if err != nil {
		h.logger.Error("Failed to list alert events",
			zap.Error(err),
		)
		writeJSON(w, http.StatusInternalServerError, Fail("failed to list alert events"))
		return
	}

	writeJSON(w, http.StatusOK, Ok(events))
}

// ExportAlertEvents 导出报警事件为 Excel 文件
func (h *AlertEventsHandler) ExportAlertEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.eventsRepo.ListAlertEvents(r.Context(), parseFilters(r))
	if err != nil {
		h.logger.Error("Failed to query alert events for export",
			zap.Error(err),
		)
		writeJSON(w, http.StatusInternalServerError, Fail("failed to export alert events"))
		return
	}

	data, err := GenerateAlertEventsExport(events)
	if err != nil {
		h.logger.Error("Failed to generate alert events export",
			zap.Error(err),
		)
		writeJSON(w, http.StatusInternalServerError, Fail("failed to generate export file"))
		return
	}

	filename := fmt.Sprintf("alert_events_%s.xlsx", time.Now().Format("20060102_150405"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
