package pipeline

import (
	"fmt"
	"path/filepath"

	"VRADelays/src/datapush"
	"VRADelays/src/datasource/file"
	"VRADelays/src/observability"
	"VRADelays/src/processor"
	"VRADelays/src/report"
)

// AnalyzeRequest 统计阶段的输入和输出目录
type AnalyzeRequest struct {
	Input  string // 清洗结果文件或目录
	OutDir string
}

// AnalyzeSummary 统计阶段的结果
type AnalyzeSummary struct {
	Files   []string
	Skipped []string
	Coerced int // 无法解析而置空的时间
	Result  *processor.Result
	Tables  []string
	Charts  *report.Charts
	Report  string
}

// Analyze 读取清洗结果,计算统计,输出表格、图表和报告
func (p *Pipeline) Analyze(req AnalyzeRequest) (sum *AnalyzeSummary, err error) {
	defer p.stage(observability.StageAnalyze)(&err)

	files, err := file.CleanedFiles(req.Input)
	if err != nil {
		return nil, err
	}
	sum = &AnalyzeSummary{}

	var flights []processor.Flight
	for _, path := range files {
		res, err := p.readFile(observability.StageAnalyze, path)
		if err != nil {
			return sum, err
		}
		if res == nil {
			sum.Skipped = append(sum.Skipped, path)
			continue
		}
		df := processor.NormalizeColumns(res.Data, p.Data)
		if err := processor.RequireAirportColumns(df); err != nil {
			p.Metrics.FilesFailed.WithLabelValues(observability.StageAnalyze, observability.FailColumns).Inc()
			p.Logger.Warning(fmt.Sprintf("ignorando %s: %v", path, err))
			sum.Skipped = append(sum.Skipped, path)
			continue
		}
		fs, coerced := processor.ToFlights(df, p.Data.TimeLayouts)
		flights = append(flights, fs...)
		sum.Coerced += coerced
		sum.Files = append(sum.Files, path)
		p.Logger.Info(fmt.Sprintf("%s: %d voos", filepath.Base(path), len(fs)))
	}
	if sum.Coerced > 0 {
		p.Logger.Warning(fmt.Sprintf("%d horário(s) inválido(s) tratados como ausentes", sum.Coerced))
	}

	cfg := p.Config.Analysis
	res, err := processor.Analyze(flights, processor.OptionsFromConfig(cfg))
	if err != nil {
		return sum, err
	}
	sum.Result = res
	p.Metrics.RecordsMeasurable.Add(float64(res.Measurable))
	p.Logger.Info(fmt.Sprintf("voos=%d mensuráveis=%d atrasados=%d taxa=%.1f%%",
		res.Total, res.Measurable, res.Delayed, res.Rate()*100))
	for _, note := range res.Notes {
		p.Logger.Warning(note)
	}

	// 表格
	tablesDir := filepath.Join(req.OutDir, "tables")
	if sum.Tables, err = datapush.WriteTables(res, tablesDir); err != nil {
		return sum, err
	}

	// 图表
	sum.Charts, err = report.RenderAll(res, filepath.Join(req.OutDir, "charts"), cfg.TopN, cfg.TopNAirline)
	if sum.Charts != nil {
		p.Metrics.ChartsRendered.Add(float64(len(sum.Charts.Rendered)))
		p.Metrics.ChartsSkipped.Add(float64(len(sum.Charts.Skipped)))
		for _, name := range sum.Charts.Skipped {
			p.Logger.Warning(fmt.Sprintf("gráfico %s ignorado: %v", name, report.ErrEmptySeries))
		}
	}
	if err != nil {
		return sum, err
	}

	// 报告
	r := report.NewReporter(req.OutDir, cfg.TopN, cfg.TopNAirline, p.Clock)
	if sum.Report, err = r.Write(res, sum.Charts, tablesDir); err != nil {
		return sum, err
	}
	p.Logger.Info("relatório gravado em " + sum.Report)
	return sum, nil
}
