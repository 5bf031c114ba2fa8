package observability

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "vra"

// 阶段名
const (
	StageClean   = "clean"
	StageAnalyze = "analyze"
)

// 文件失败原因
const (
	FailIO              = "io"
	FailUninterpretable = "ininterpretavel"
	FailColumns         = "colunas"
)

// Metrics 一次运行的计数,使用独立的registry,运行结束时写入textfile
type Metrics struct {
	registry *prometheus.Registry

	FilesRead   *prometheus.CounterVec // labels: stage
	FilesFailed *prometheus.CounterVec // labels: stage, reason

	RecordsRead       prometheus.Counter
	RecordsKept       prometheus.Counter
	RecordsDropped    *prometheus.CounterVec // labels: reason
	RecordsMeasurable prometheus.Counter

	ChartsRendered prometheus.Counter
	ChartsSkipped  prometheus.Counter

	StageDuration *prometheus.GaugeVec // labels: stage
	LastSuccess   *prometheus.GaugeVec // labels: stage
}

// NewMetrics 创建并注册全部指标
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		FilesRead: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_read_total",
			Help:      "Input files read successfully, by stage.",
		}, []string{"stage"}),
		FilesFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_failed_total",
			Help:      "Input files that could not be used, by stage and reason.",
		}, []string{"stage", "reason"}),
		RecordsRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_read_total",
			Help:      "Raw flight records read by the clean stage.",
		}),
		RecordsKept: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_kept_total",
			Help:      "Domestic flight records written by the clean stage.",
		}),
		RecordsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_dropped_total",
			Help:      "Flight records dropped by the clean stage, by reason.",
		}, []string{"reason"}),
		RecordsMeasurable: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_measurable_total",
			Help:      "Cleaned flight records with a measurable delay.",
		}),
		ChartsRendered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "charts_rendered_total",
			Help:      "PNG charts written by the analyze stage.",
		}),
		ChartsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "charts_skipped_total",
			Help:      "Charts skipped because their series was empty.",
		}),
		StageDuration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Wall time of the last run of each stage.",
		}, []string{"stage"}),
		LastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stage_last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run of each stage.",
		}, []string{"stage"}),
	}

	m.registry.MustRegister(
		m.FilesRead,
		m.FilesFailed,
		m.RecordsRead,
		m.RecordsKept,
		m.RecordsDropped,
		m.RecordsMeasurable,
		m.ChartsRendered,
		m.ChartsSkipped,
		m.StageDuration,
		m.LastSuccess,
	)
	return m
}

// Registry 供测试和textfile导出使用
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveStage 记录阶段耗时;成功时更新最后成功时间
func (m *Metrics) ObserveStage(stage string, start, end time.Time, err error) {
	m.StageDuration.WithLabelValues(stage).Set(end.Sub(start).Seconds())
	if err == nil {
		m.LastSuccess.WithLabelValues(stage).Set(float64(end.Unix()))
	}
}

// WriteTextfile 写成node-exporter textfile格式,path为空时不写
func (m *Metrics) WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("criar diretório de métricas %s: %w", dir, err)
		}
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("gravar métricas em %s: %w", path, err)
	}
	return nil
}
