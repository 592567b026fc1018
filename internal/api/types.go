package api

import (
	"strconv"
	"time"

	"vidredact/internal/jobs"
	"vidredact/internal/workflow"
)

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// IngestResponse is returned once an upload is accepted. The numeric message
// mirrors the upstream contract.
type IngestResponse struct {
	Message int `json:"message"`
}

// ErrorResponse carries a human-readable failure.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// DownloadResponse carries the presigned link and per-class durations.
type DownloadResponse struct {
	DownloadURL string            `json:"download_url"`
	Labels      map[string]string `json:"labels"`
}

// PendingResponse lists work IDs still waiting to be processed.
type PendingResponse struct {
	PendingJobs []string `json:"pending_jobs"`
}

// OrderStatus describes one work order.
type OrderStatus struct {
	WorkID         string             `json:"work_id"`
	Status         string             `json:"status"`
	StatusCode     int                `json:"status_code"`
	DisplayName    string             `json:"display_name"`
	Threshold      float64            `json:"confidence_threshold"`
	MosaicStrength int                `json:"mosaic_strength"`
	ResultURL      string             `json:"result_url,omitempty"`
	Error          string             `json:"error,omitempty"`
	Durations      map[string]float64 `json:"durations"`
	CreatedAt      string             `json:"created_at,omitempty"`
	StartedAt      string             `json:"started_at,omitempty"`
	FinishedAt     string             `json:"finished_at,omitempty"`
	ElapsedSeconds float64            `json:"elapsed_seconds,omitempty"`
}

// HealthResponse summarizes daemon liveness.
type HealthResponse struct {
	Status        string         `json:"status"`
	WorkerRunning bool           `json:"worker_running"`
	CurrentJob    string         `json:"current_job,omitempty"`
	Queued        int            `json:"queued"`
	Processed     int            `json:"processed"`
	Failed        int            `json:"failed"`
	OrderStats    map[string]int `json:"order_stats,omitempty"`
	LastError     string         `json:"last_error,omitempty"`
}

// FromWorkOrder converts a stored order to its transport form.
func FromWorkOrder(order *jobs.WorkOrder) OrderStatus {
	if order == nil {
		return OrderStatus{}
	}
	return OrderStatus{
		WorkID:         order.WorkID,
		Status:         order.Status.String(),
		StatusCode:     int(order.Status),
		DisplayName:    order.DisplayName,
		Threshold:      order.ConfidenceThreshold,
		MosaicStrength: order.MosaicStrength,
		ResultURL:      order.ResultURL,
		Error:          order.Error,
		Durations:      order.Durations.Normalized(),
		CreatedAt:      formatTime(&order.CreatedAt),
		StartedAt:      formatTime(order.StartedAt),
		FinishedAt:     formatTime(order.FinishedAt),
		ElapsedSeconds: order.Elapsed().Seconds(),
	}
}

// LabelsFromDurations renders every persisted class as a decimal string,
// zero included.
func LabelsFromDurations(durations jobs.Durations) map[string]string {
	normalized := durations.Normalized()
	labels := make(map[string]string, len(jobs.Classes))
	for _, class := range jobs.Classes {
		labels[class] = strconv.FormatFloat(normalized[class], 'f', -1, 64)
	}
	return labels
}

// FromStatusSummary converts workflow diagnostics for the health endpoint.
func FromStatusSummary(summary workflow.StatusSummary) HealthResponse {
	resp := HealthResponse{
		Status:        "ok",
		WorkerRunning: summary.Running,
		CurrentJob:    summary.Current,
		Queued:        len(summary.Queued),
		Processed:     summary.Processed,
		Failed:        summary.Failed,
		LastError:     summary.LastError,
	}
	if len(summary.OrderStats) > 0 {
		resp.OrderStats = make(map[string]int, len(summary.OrderStats))
		for status, count := range summary.OrderStats {
			resp.OrderStats[status.String()] = count
		}
	}
	return resp
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
