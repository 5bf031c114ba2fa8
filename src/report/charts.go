package report

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"

	"VRADelays/src/processor"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// ErrEmptySeries 没有可画的数据
var ErrEmptySeries = errors.New("série vazia")

// 图表文件名
const (
	ChartTopDestination = "aeroportos_destino_mais_atrasos.png"
	ChartTopOrigin      = "aeroportos_origem_mais_atrasos.png"
	ChartTrend          = "tendencia_mensal_taxa.png"
)

const (
	chartWidth  = 9 * vg.Inch
	chartHeight = 5 * vg.Inch
	barWidth    = vg.Length(14) // 14pt
)

var barColor = color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff}

// VariationChartName kind 为 aumentos 或 reducoes
func VariationChartName(axis, kind string) string {
	return fmt.Sprintf("variacao_%s_%s.png", axis, kind)
}

// SingleYearChartName 只有一年数据时替代变化图
func SingleYearChartName(axis string, year int) string {
	return fmt.Sprintf("variacao_%s_sem_delta_%d.png", axis, year)
}

func WeekdayChartName(year int) string { return fmt.Sprintf("dow_%d.png", year) }
func PeriodChartName(year int) string  { return fmt.Sprintf("periodo_%d.png", year) }
func AirlineChartName(year int) string { return fmt.Sprintf("cias_%d.png", year) }

// Series 图表的标签和数值
type Series struct {
	Labels []string
	Values []float64
}

func (s Series) empty() bool {
	return len(s.Values) == 0 || len(s.Labels) != len(s.Values)
}

// Charts 已生成的图表
type Charts struct {
	Dir      string
	Rendered map[string]string // 文件名 -> 路径
	Skipped  []string
}

// Has 图表是否已生成
func (c *Charts) Has(name string) bool {
	if c == nil {
		return false
	}
	_, ok := c.Rendered[name]
	return ok
}

// Bar 柱状图,标签过多时倾斜显示
func Bar(path, title, yLabel string, s Series) error {
	if s.empty() {
		return ErrEmptySeries
	}
	p := plot.New()
	p.Title.Text = title
	p.Y.Label.Text = yLabel

	bars, err := plotter.NewBarChart(plotter.Values(s.Values), barWidth)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	bars.LineStyle.Width = vg.Length(0)
	bars.Color = barColor
	p.Add(bars, plotter.NewGrid())
	p.NominalX(s.Labels...)
	if len(s.Labels) > 7 {
		p.X.Tick.Label.Rotation = math.Pi / 4
		p.X.Tick.Label.XAlign = draw.XRight
		p.X.Tick.Label.YAlign = draw.YCenter
	}
	return save(p, path)
}

// Line 折线图,x轴为序号,标签为月份
func Line(path, title, yLabel string, s Series) error {
	if s.empty() {
		return ErrEmptySeries
	}
	p := plot.New()
	p.Title.Text = title
	p.Y.Label.Text = yLabel

	pts := make(plotter.XYs, len(s.Values))
	for i, v := range s.Values {
		pts[i].X = float64(i)
		pts[i].Y = v
	}
	line, points, err := plotter.NewLinePoints(pts)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	p.Add(line, points, plotter.NewGrid())
	p.NominalX(s.Labels...)
	if len(s.Labels) > 12 {
		p.X.Tick.Label.Rotation = math.Pi / 2
		p.X.Tick.Label.XAlign = draw.XRight
		p.X.Tick.Label.YAlign = draw.YCenter
	}
	return save(p, path)
}

func save(p *plot.Plot, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("criar diretório de gráficos: %w", err)
	}
	if err := p.Save(chartWidth, chartHeight, path); err != nil {
		return fmt.Errorf("salvar gráfico %s: %w", path, err)
	}
	return nil
}

// RankingSeries 排名转图表数据;按延误率排名时以百分比显示
func RankingSeries(r processor.Ranking, buckets []processor.Bucket) Series {
	s := Series{}
	for _, b := range buckets {
		s.Labels = append(s.Labels, b.Key)
		s.Values = append(s.Values, metricValue(r, b))
	}
	return s
}

// DeltaSeries 变化量转图表数据
func DeltaSeries(v processor.Variation, deltas []processor.Delta) Series {
	s := Series{}
	for _, d := range deltas {
		s.Labels = append(s.Labels, d.Key)
		val := d.Delta
		if v.Metric == processor.MetricRate {
			val *= 100
		}
		s.Values = append(s.Values, val)
	}
	return s
}

// TrendSeries 月度延误率(%)
func TrendSeries(t processor.Trend) Series {
	s := Series{}
	for _, p := range t.Points {
		s.Labels = append(s.Labels, p.Label())
		s.Values = append(s.Values, p.Rate()*100)
	}
	return s
}

func metricValue(r processor.Ranking, b processor.Bucket) float64 {
	if r.Metric == processor.MetricRate {
		return b.Rate() * 100
	}
	return float64(b.Delayed)
}

func metricLabel(metric string) string {
	if metric == processor.MetricRate {
		return "% de voos atrasados"
	}
	return "voos atrasados"
}

func truncate[T any](s []T, n int) []T {
	if n > 0 && len(s) > n {
		return s[:n]
	}
	return s
}

// RenderAll 生成全部图表;空序列跳过并记录,其他错误返回
func RenderAll(res *processor.Result, dir string, topN, topNAirline int) (*Charts, error) {
	c := &Charts{Dir: dir, Rendered: make(map[string]string)}

	render := func(name string, fn func(path string) error) error {
		path := filepath.Join(dir, name)
		err := fn(path)
		switch {
		case errors.Is(err, ErrEmptySeries):
			c.Skipped = append(c.Skipped, name)
			return nil
		case err != nil:
			return err
		}
		c.Rendered[name] = path
		return nil
	}
	bar := func(name, title string, r processor.Ranking, buckets []processor.Bucket) error {
		return render(name, func(path string) error {
			return Bar(path, title, metricLabel(r.Metric), RankingSeries(r, buckets))
		})
	}

	// 1. 起降机场
	if err := bar(ChartTopDestination, "Aeroportos de destino com mais atrasos", res.TopDestination, res.TopDestination.Top(topN)); err != nil {
		return c, err
	}
	if err := bar(ChartTopOrigin, "Aeroportos de origem com mais atrasos", res.TopOrigin, res.TopOrigin.Top(topN)); err != nil {
		return c, err
	}

	// 2. 年度变化
	for _, v := range []processor.Variation{res.VariationDestination, res.VariationOrigin} {
		if !v.Available {
			if v.SingleYear == 0 {
				continue
			}
			title := fmt.Sprintf("Atrasos por aeroporto (%s) em %d", v.Axis, v.SingleYear)
			r := v.SingleRanking
			if err := bar(SingleYearChartName(v.Axis, v.SingleYear), title, r, r.Top(topN)); err != nil {
				return c, err
			}
			continue
		}
		yLabel := fmt.Sprintf("variação %d→%d (%s)", v.FromYear, v.ToYear, metricLabel(v.Metric))
		for _, kind := range []struct {
			name, title string
			deltas      []processor.Delta
		}{
			{"aumentos", "Maiores aumentos de atraso", v.Increases()},
			{"reducoes", "Maiores reduções de atraso", v.Decreases()},
		} {
			deltas := truncate(kind.deltas, topN)
			title := fmt.Sprintf("%s por aeroporto de %s", kind.title, v.Axis)
			err := render(VariationChartName(v.Axis, kind.name), func(path string) error {
				return Bar(path, title, yLabel, DeltaSeries(v, deltas))
			})
			if err != nil {
				return c, err
			}
		}
	}

	// 3. 月度趋势
	err := render(ChartTrend, func(path string) error {
		return Line(path, "Taxa mensal de atrasos", "% de voos atrasados", TrendSeries(res.Trend))
	})
	if err != nil {
		return c, err
	}

	// 4-6. 每年的星期、时段、航空公司
	for _, yr := range res.Weekday {
		title := fmt.Sprintf("Atrasos por dia da semana em %d", yr.Year)
		if err := bar(WeekdayChartName(yr.Year), title, yr.Ranking, orderedOrEmpty(yr.Ranking, processor.WeekdayLabels)); err != nil {
			return c, err
		}
	}
	for _, yr := range res.Period {
		title := fmt.Sprintf("Atrasos por período do dia em %d", yr.Year)
		if err := bar(PeriodChartName(yr.Year), title, yr.Ranking, orderedOrEmpty(yr.Ranking, processor.PeriodLabels)); err != nil {
			return c, err
		}
	}
	for _, yr := range res.Airline {
		title := fmt.Sprintf("Companhias com mais atrasos em %d", yr.Year)
		if err := bar(AirlineChartName(yr.Year), title, yr.Ranking, yr.Ranking.Top(topNAirline)); err != nil {
			return c, err
		}
	}
	return c, nil
}

// orderedOrEmpty 固定顺序;没有任何分组时返回空,让图表被跳过
func orderedOrEmpty(r processor.Ranking, keys []string) []processor.Bucket {
	if r.Empty() {
		return nil
	}
	return r.InOrder(keys)
}
