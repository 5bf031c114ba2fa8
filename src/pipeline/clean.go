package pipeline

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"

	"VRADelays/src/datapush"
	"VRADelays/src/datasource/file"
	"VRADelays/src/observability"
	"VRADelays/src/processor"

	"github.com/go-gota/gota/dataframe"
)

// CleanRequest 清洗阶段的文件选择和输出目录
type CleanRequest struct {
	DataDir string
	Year    int
	All     bool
	Files   []string
	OutDir  string
}

// CleanSummary 清洗阶段的结果
type CleanSummary struct {
	Label   string
	Dir     string
	Files   []string // 实际读取的文件
	Skipped []string // 内容无法解析或缺少机场列
	Stats   processor.CleanStats
	Outputs []string
}

// SelectFiles 按参数选出输入文件;显式文件优先,其次年份,最后全部
func SelectFiles(req CleanRequest) ([]string, string, error) {
	var (
		files []string
		label string
		err   error
	)
	switch {
	case len(req.Files) > 0:
		files, label = req.Files, "SELECAO"
	case req.Year > 0:
		label = strconv.Itoa(req.Year)
		files, err = file.FilesForYear(req.DataDir, req.Year)
	case req.All:
		label = "ALL"
		files, err = file.FilesAll(req.DataDir)
	default:
		return nil, "", fmt.Errorf("informe --year, --all ou arquivos: %w", file.ErrNoInputFiles)
	}
	if err != nil {
		return nil, label, err
	}
	if len(files) == 0 {
		return nil, label, fmt.Errorf("%s (%s): %w", req.DataDir, label, file.ErrNoInputFiles)
	}
	return files, label, nil
}

// Clean 读取、清洗、合并并写出国内航班
func (p *Pipeline) Clean(req CleanRequest) (sum *CleanSummary, err error) {
	defer p.stage(observability.StageClean)(&err)

	files, label, err := SelectFiles(req)
	if err != nil {
		return nil, err
	}
	sum = &CleanSummary{
		Label: label,
		Dir:   filepath.Join(req.OutDir, "BR_"+label),
		Stats: processor.CleanStats{Dropped: make(map[string]int)},
	}
	p.Logger.Info(fmt.Sprintf("%d arquivo(s) selecionado(s) para %s", len(files), label))

	var frames []dataframe.DataFrame
	for _, path := range files {
		res, err := p.readFile(observability.StageClean, path)
		if err != nil {
			return sum, err
		}
		if res == nil {
			sum.Skipped = append(sum.Skipped, path)
			continue
		}

		cleaned, st, err := processor.Clean(res.Data, p.Data)
		if errors.Is(err, processor.ErrMissingColumns) {
			p.Metrics.FilesFailed.WithLabelValues(observability.StageClean, observability.FailColumns).Inc()
			p.Logger.Warning(fmt.Sprintf("ignorando %s: %v", path, err))
			sum.Skipped = append(sum.Skipped, path)
			continue
		}
		if err != nil {
			return sum, fmt.Errorf("%s: %w", path, err)
		}
		if res.Malformed > 0 {
			st.Read += res.Malformed
			st.Dropped[processor.DropMalformed] += res.Malformed
		}

		p.Logger.Info(fmt.Sprintf("%s: lidos=%d descartados=%d mantidos=%d [%s]",
			filepath.Base(path), st.Read, st.DroppedTotal(), st.Kept, formatCounts(st.Dropped)))
		sum.Stats.Add(st)
		sum.Files = append(sum.Files, path)
		frames = append(frames, cleaned)
	}

	p.Metrics.RecordsRead.Add(float64(sum.Stats.Read))
	p.Metrics.RecordsKept.Add(float64(sum.Stats.Kept))
	for reason, n := range sum.Stats.Dropped {
		p.Metrics.RecordsDropped.WithLabelValues(reason).Add(float64(n))
	}

	if len(frames) == 0 {
		return sum, fmt.Errorf("nenhum arquivo interpretável entre %d selecionado(s): %w", len(files), file.ErrNoInputFiles)
	}
	df, err := concat(frames)
	if err != nil {
		return sum, err
	}
	if df.Nrow() == 0 {
		p.Logger.Warning("nenhum voo doméstico mantido, gravando apenas o cabeçalho")
	}

	sum.Outputs, err = datapush.WriteCleaned(df, sum.Dir, "voos_BR_"+label, p.Config.Clean)
	if err != nil {
		return sum, err
	}
	p.Logger.Info(fmt.Sprintf("total: lidos=%d descartados=%d mantidos=%d [%s]",
		sum.Stats.Read, sum.Stats.DroppedTotal(), sum.Stats.Kept, formatCounts(sum.Stats.Dropped)))
	for _, out := range sum.Outputs {
		p.Logger.Info("gravado " + out)
	}
	return sum, nil
}
