package pipeline

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"VRADelays/src/config"
	"VRADelays/src/datasource/file"
	"VRADelays/src/observability"
	"VRADelays/src/storage"

	"github.com/go-gota/gota/dataframe"
	"github.com/jonboulle/clockwork"
)

// Pipeline 串联清洗和统计两个阶段,顺序执行
type Pipeline struct {
	Config  *config.Config
	Data    *config.DataConfig
	Logger  *storage.Logger
	Metrics *observability.Metrics
	Clock   clockwork.Clock
}

// New metrics或clock为nil时使用默认值
func New(cfg *config.Config, dcfg *config.DataConfig, logger *storage.Logger, metrics *observability.Metrics, clock clockwork.Clock) *Pipeline {
	if metrics == nil {
		metrics = observability.NewMetrics()
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Pipeline{Config: cfg, Data: dcfg, Logger: logger, Metrics: metrics, Clock: clock}
}

// stage 记录阶段耗时和结果
func (p *Pipeline) stage(name string) func(*error) {
	start := p.Clock.Now()
	p.Logger.Info(fmt.Sprintf("[%s] início", name))
	return func(errp *error) {
		end := p.Clock.Now()
		p.Metrics.ObserveStage(name, start, end, *errp)
		if *errp != nil {
			p.Logger.Error(fmt.Sprintf("[%s] falhou após %v: %v", name, end.Sub(start).Round(time.Millisecond), *errp))
			return
		}
		p.Logger.Info(fmt.Sprintf("[%s] concluído em %v", name, end.Sub(start).Round(time.Millisecond)))
	}
}

// readFile 读取一个文件;内容无法解析时记录警告并返回nil,I/O错误返回error
func (p *Pipeline) readFile(stage, path string) (*file.Result, error) {
	res, err := file.ReadVRAFile(path, p.Data.SheetName)
	switch {
	case errors.Is(err, file.ErrUninterpretable):
		p.Metrics.FilesFailed.WithLabelValues(stage, observability.FailUninterpretable).Inc()
		p.Logger.Warning(fmt.Sprintf("ignorando arquivo: %v", err))
		return nil, nil
	case err != nil:
		p.Metrics.FilesFailed.WithLabelValues(stage, observability.FailIO).Inc()
		return nil, err
	}
	p.Metrics.FilesRead.WithLabelValues(stage).Inc()
	p.Logger.Debug(fmt.Sprintf("%s: %d linhas (%s)", path, res.Rows(), res.Format))
	return res, nil
}

// concat 合并多个文件的结果,列取并集
func concat(frames []dataframe.DataFrame) (dataframe.DataFrame, error) {
	if len(frames) == 0 {
		return dataframe.DataFrame{}, errors.New("nenhum dado")
	}
	out := frames[0]
	for _, df := range frames[1:] {
		out = out.Concat(df)
	}
	if out.Err != nil {
		return out, fmt.Errorf("concatenar arquivos: %w", out.Err)
	}
	return out, nil
}

func formatCounts(m map[string]int) string {
	keys := make([]string, 0, len(m))
	for k, v := range m {
		if v > 0 {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return "-"
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%d", k, m[k])
	}
	return strings.Join(parts, " ")
}
