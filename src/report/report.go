package report

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/template"

	"VRADelays/src/processor"
	"VRADelays/src/utils"

	"github.com/jonboulle/clockwork"
)

// FileName 报告文件名
const FileName = "report.md"

//go:embed template.md
var templateText string

var reportTemplate = template.Must(template.New("report").Parse(templateText))

// Reporter 把统计结果填入固定模板
type Reporter struct {
	Dir         string // 报告目录,图表和表格用相对路径引用
	TopN        int
	TopNAirline int
	Clock       clockwork.Clock
}

// NewReporter clock为nil时使用真实时钟
func NewReporter(dir string, topN, topNAirline int, clock clockwork.Clock) *Reporter {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Reporter{Dir: dir, TopN: topN, TopNAirline: topNAirline, Clock: clock}
}

// Report 模板数据
type Report struct {
	GeneratedAt     string
	OnTimeMin       int
	MinSamples      int
	MinCountAirline int

	Total      int
	Measurable int
	Delayed    int
	Rate       string
	Years      string
	Notes      []string

	TopDestination rankingView
	TopOrigin      rankingView
	Variations     []variationView
	Trend          trendView
	Weekday        []yearView
	Period         []yearView
	Airline        []yearView

	TablesDir string
}

type rankingView struct {
	Title    string
	KeyTitle string
	Metric   string
	Leader   string
	Chart    string
	Rows     []rowView
}

type rowView struct {
	Position int
	Key      string
	Total    int
	Delayed  int
	Rate     string
}

type chartRef struct {
	Title string
	Path  string
}

type variationView struct {
	Title      string
	Available  bool
	FromYear   int
	ToYear     int
	Metric     string
	Increase   string
	Decrease   string
	SingleYear int
	Leader     string
	Charts     []chartRef
}

type trendView struct {
	Points    int
	Policy    string
	Direction string
	First     string
	Last      string
	Slope     string
	Chart     string
}

type yearView struct {
	Year   int
	Title  string
	Leader string
	Metric string
	Chart  string
}

// Write 生成 report.md,返回路径
func (r *Reporter) Write(res *processor.Result, charts *Charts, tablesDir string) (string, error) {
	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, r.Build(res, charts, tablesDir)); err != nil {
		return "", fmt.Errorf("renderizar relatório: %w", err)
	}
	if err := os.MkdirAll(r.Dir, 0o755); err != nil {
		return "", fmt.Errorf("criar diretório do relatório %s: %w", r.Dir, err)
	}
	path := filepath.Join(r.Dir, FileName)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("gravar relatório %s: %w", path, err)
	}
	return path, nil
}

// Build 整理模板数据
func (r *Reporter) Build(res *processor.Result, charts *Charts, tablesDir string) Report {
	opts := res.Options
	rep := Report{
		GeneratedAt:     r.Clock.Now().Format(utils.TimeLayout),
		OnTimeMin:       opts.OnTimeMin,
		MinSamples:      opts.MinSamples,
		MinCountAirline: opts.MinCountAirline,
		Total:           res.Total,
		Measurable:      res.Measurable,
		Delayed:         res.Delayed,
		Rate:            percent(res.Rate()),
		Notes:           res.Notes,
		TablesDir:       r.rel(tablesDir),
	}
	years := make([]string, len(res.Years))
	for i, y := range res.Years {
		years[i] = strconv.Itoa(y)
	}
	rep.Years = strings.Join(years, ", ")

	// 1. 起降机场
	rep.TopDestination = r.ranking("Por destino (chegada)", res.TopDestination, charts, ChartTopDestination)
	rep.TopOrigin = r.ranking("Por origem (partida)", res.TopOrigin, charts, ChartTopOrigin)

	// 2. 年度变化
	rep.Variations = []variationView{
		r.variation("Por destino", res.VariationDestination, charts),
		r.variation("Por origem", res.VariationOrigin, charts),
	}

	// 3. 月度趋势
	rep.Trend = trendView{
		Points:    len(res.Trend.Points),
		Policy:    res.Trend.Policy,
		Direction: res.Trend.Direction,
		Slope:     strconv.FormatFloat(res.Trend.Slope*100, 'f', 3, 64),
		Chart:     r.chart(charts, ChartTrend),
	}
	if p, ok := res.Trend.First(); ok {
		rep.Trend.First = fmt.Sprintf("%s (%s)", p.Label(), percent(p.Rate()))
	}
	if p, ok := res.Trend.Last(); ok {
		rep.Trend.Last = fmt.Sprintf("%s (%s)", p.Label(), percent(p.Rate()))
	}

	// 4-6. 每年的星期、时段、航空公司
	rep.Weekday = r.years(res.Weekday, charts, "Dia da semana", WeekdayChartName)
	rep.Period = r.years(res.Period, charts, "Período do dia", PeriodChartName)
	rep.Airline = r.years(res.Airline, charts, "Companhias", AirlineChartName)
	return rep
}

func (r *Reporter) ranking(title string, rk processor.Ranking, charts *Charts, chart string) rankingView {
	v := rankingView{Title: title, KeyTitle: "aeroporto", Metric: rk.Metric, Chart: r.chart(charts, chart)}
	if b, ok := rk.Leader(); ok {
		v.Leader = describe(rk, b)
	}
	for i, b := range rk.Top(r.TopN) {
		v.Rows = append(v.Rows, rowView{Position: i + 1, Key: b.Key, Total: b.Total, Delayed: b.Delayed, Rate: percent(b.Rate())})
	}
	return v
}

func (r *Reporter) variation(title string, v processor.Variation, charts *Charts) variationView {
	out := variationView{
		Title:      title,
		Available:  v.Available,
		FromYear:   v.FromYear,
		ToYear:     v.ToYear,
		Metric:     v.Metric,
		SingleYear: v.SingleYear,
	}
	if !v.Available {
		if b, ok := v.SingleRanking.Leader(); ok {
			out.Leader = describe(v.SingleRanking, b)
		}
		if p := r.chart(charts, SingleYearChartName(v.Axis, v.SingleYear)); p != "" {
			out.Charts = append(out.Charts, chartRef{Title: "Atrasos por aeroporto em " + strconv.Itoa(v.SingleYear), Path: p})
		}
		return out
	}

	if v.Increase != nil {
		out.Increase = describeDelta(v.Metric, *v.Increase)
	}
	if v.Decrease != nil {
		out.Decrease = describeDelta(v.Metric, *v.Decrease)
	}
	for _, kind := range []struct{ name, title string }{
		{"aumentos", "Maiores aumentos"},
		{"reducoes", "Maiores reduções"},
	} {
		if p := r.chart(charts, VariationChartName(v.Axis, kind.name)); p != "" {
			out.Charts = append(out.Charts, chartRef{Title: kind.title, Path: p})
		}
	}
	return out
}

func (r *Reporter) years(yrs []processor.YearRanking, charts *Charts, title string, name func(int) string) []yearView {
	var out []yearView
	for _, yr := range yrs {
		v := yearView{
			Year:   yr.Year,
			Title:  fmt.Sprintf("%s em %d", title, yr.Year),
			Metric: yr.Ranking.Metric,
			Chart:  r.chart(charts, name(yr.Year)),
		}
		if b, ok := yr.Ranking.Leader(); ok {
			v.Leader = describe(yr.Ranking, b)
		}
		out = append(out, v)
	}
	return out
}

// chart 已生成的图表相对报告目录的路径,未生成时为空
func (r *Reporter) chart(charts *Charts, name string) string {
	if !charts.Has(name) {
		return ""
	}
	return r.rel(charts.Rendered[name])
}

func (r *Reporter) rel(path string) string {
	if path == "" {
		return ""
	}
	if rel, err := filepath.Rel(r.Dir, path); err == nil {
		return filepath.ToSlash(rel)
	}
	return filepath.ToSlash(path)
}

func describe(rk processor.Ranking, b processor.Bucket) string {
	if rk.Metric == processor.MetricRate {
		return fmt.Sprintf("%s (%s, %d de %d voos)", b.Key, percent(b.Rate()), b.Delayed, b.Total)
	}
	return fmt.Sprintf("%s (%d atrasos em %d voos)", b.Key, b.Delayed, b.Total)
}

func describeDelta(metric string, d processor.Delta) string {
	if metric == processor.MetricRate {
		return fmt.Sprintf("%s (%+.1f p.p.: %s → %s)", d.Key, d.Delta*100, percent(d.From), percent(d.To))
	}
	return fmt.Sprintf("%s (%+.0f atrasos: %.0f → %.0f)", d.Key, d.Delta, d.From, d.To)
}

func percent(rate float64) string {
	return strconv.FormatFloat(rate*100, 'f', 1, 64) + "%"
}
