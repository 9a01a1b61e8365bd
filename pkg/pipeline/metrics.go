// pkg/pipeline/metrics.go
package pipeline

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/refinery-project/refinery/pkg/stage"
)

// StageMetrics tracks counters for a single stage execution
type StageMetrics struct {
	Stage        string        `json:"stage"`
	Succeeded    bool          `json:"succeeded"`
	Duration     time.Duration `json:"duration"`
	RowDelta     int           `json:"row_delta"`
	ColumnDelta  int           `json:"column_delta"`
	ChecksPassed int           `json:"checks_passed"`
	ChecksFailed int           `json:"checks_failed"`
}

// Metrics aggregates counters across a run. Safe for concurrent use so
// parallel runs can share nothing but their own recorder.
type Metrics struct {
	mu     sync.Mutex
	logger *zap.Logger

	StartTime       time.Time                `json:"start_time"`
	EndTime         time.Time                `json:"end_time"`
	RowsIn          int                      `json:"rows_in"`
	RowsOut         int                      `json:"rows_out"`
	ColumnsIn       int                      `json:"columns_in"`
	ColumnsOut      int                      `json:"columns_out"`
	Transformations int                      `json:"transformations"`
	StagesRun       int                      `json:"stages_run"`
	StagesFailed    int                      `json:"stages_failed"`
	StageMetrics    map[string]*StageMetrics `json:"stage_metrics"`
}

// NewMetrics creates a metrics recorder for one run
func NewMetrics(logger *zap.Logger) *Metrics {
	return &Metrics{
		StartTime:    time.Now(),
		StageMetrics: make(map[string]*StageMetrics),
		logger:       logger,
	}
}

// RecordLoad captures the dataset shape at load time
func (m *Metrics) RecordLoad(rows, cols int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RowsIn = rows
	m.ColumnsIn = cols
}

// RecordStage captures one stage outcome
func (m *Metrics) RecordStage(o stage.Outcome) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.StagesRun++
	if !o.Succeeded {
		m.StagesFailed++
	}
	m.StageMetrics[o.Stage] = &StageMetrics{
		Stage:        o.Stage,
		Succeeded:    o.Succeeded,
		Duration:     o.Duration,
		RowDelta:     o.RowDelta,
		ColumnDelta:  o.ColumnDelta,
		ChecksPassed: o.ChecksPassed,
		ChecksFailed: o.ChecksFailed,
	}

	if m.logger != nil {
		m.logger.Info("Stage completed",
			zap.String("stage", o.Stage),
			zap.Bool("succeeded", o.Succeeded),
			zap.Duration("duration", o.Duration),
			zap.Int("rowDelta", o.RowDelta),
			zap.Int("columnDelta", o.ColumnDelta))
	}
}

// Complete finalizes the recorder with the output dataset shape and the
// transformation count
func (m *Metrics) Complete(rowsOut, colsOut, transformations int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.EndTime = time.Now()
	m.RowsOut = rowsOut
	m.ColumnsOut = colsOut
	m.Transformations = transformations
}

// Duration returns runtime so far, or the final runtime once completed
func (m *Metrics) Duration() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.EndTime.IsZero() {
		return time.Since(m.StartTime)
	}
	return m.EndTime.Sub(m.StartTime)
}

// ToJSON serializes the metrics for the artifact store
func (m *Metrics) ToJSON() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return json.MarshalIndent(m, "", "  ")
}

// Report renders a human-readable run report
func (m *Metrics) Report() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var sb strings.Builder
	sb.WriteString("Pipeline Run Report\n")
	sb.WriteString("===================\n")
	sb.WriteString(fmt.Sprintf("Duration:        %v\n", m.EndTime.Sub(m.StartTime).Round(time.Millisecond)))
	sb.WriteString(fmt.Sprintf("Rows:            %d -> %d\n", m.RowsIn, m.RowsOut))
	sb.WriteString(fmt.Sprintf("Columns:         %d -> %d\n", m.ColumnsIn, m.ColumnsOut))
	sb.WriteString(fmt.Sprintf("Transformations: %d\n", m.Transformations))
	sb.WriteString(fmt.Sprintf("Stages:          %d run, %d failed\n", m.StagesRun, m.StagesFailed))

	names := make([]string, 0, len(m.StageMetrics))
	for name := range m.StageMetrics {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		sm := m.StageMetrics[name]
		status := "ok"
		if !sm.Succeeded {
			status = "FAILED"
		}
		sb.WriteString(fmt.Sprintf("  %-10s %-7s %v", sm.Stage, status, sm.Duration.Round(time.Millisecond)))
		if sm.ChecksPassed+sm.ChecksFailed > 0 {
			sb.WriteString(fmt.Sprintf("  checks %d/%d", sm.ChecksPassed, sm.ChecksPassed+sm.ChecksFailed))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
