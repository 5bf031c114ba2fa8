package processor

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"VRADelays/src/config"
)

var (
	ErrEmptyDataset = errors.New("conjunto de dados vazio")
	ErrNoMeasurable = errors.New("nenhum voo com atraso mensurável")
)

// WeekdayLabels 周一在前
var WeekdayLabels = []string{"Seg", "Ter", "Qua", "Qui", "Sex", "Sáb", "Dom"}

// PeriodLabels 一天的四个时段
var PeriodLabels = []string{"madrugada", "manhã", "tarde", "noite"}

// Options 统计阈值与策略
type Options struct {
	OnTimeMin        int
	MinSamples       int
	MinCountAirline  int
	ComparisonPolicy string
	BaselineYear     int
	VariationMetric  string
	TrendPolicy      string
}

// OptionsFromConfig 从配置生成统计参数
func OptionsFromConfig(a config.AnalysisConfig) Options {
	return Options{
		OnTimeMin:        a.OnTimeMin,
		MinSamples:       a.MinSamples,
		MinCountAirline:  a.MinCountAirline,
		ComparisonPolicy: a.ComparisonPolicy,
		BaselineYear:     a.BaselineYear,
		VariationMetric:  a.VariationMetric,
		TrendPolicy:      a.TrendPolicy,
	}
}

// Measured 可测航班及其延误
type Measured struct {
	Flight
	Delay   float64
	Delayed bool
	Ref     time.Time
}

// YearRanking 某一年的排名
type YearRanking struct {
	Year    int
	Ranking Ranking
}

// Result 统计阶段的全部结果
type Result struct {
	Options    Options
	Total      int
	Measurable int
	Delayed    int
	Years      []int

	TopDestination Ranking
	TopOrigin      Ranking

	VariationDestination Variation
	VariationOrigin      Variation

	Trend Trend

	Weekday []YearRanking
	Period  []YearRanking
	Airline []YearRanking

	Notes []string
}

// Rate 全部可测航班的延误率
func (r *Result) Rate() float64 {
	return Bucket{Total: r.Measurable, Delayed: r.Delayed}.Rate()
}

// Measure 计算每条可测航班的延误,不可测的不返回
func Measure(flights []Flight, onTimeMin int) []Measured {
	out := make([]Measured, 0, len(flights))
	for _, f := range flights {
		d, ok := f.DelayMinutes()
		if !ok {
			continue
		}
		out = append(out, Measured{
			Flight:  f,
			Delay:   d,
			Delayed: d > float64(onTimeMin),
			Ref:     f.ReferenceTime(),
		})
	}
	return out
}

// Analyze 对清洗后的航班计算全部统计
func Analyze(flights []Flight, opts Options) (*Result, error) {
	if len(flights) == 0 {
		return nil, ErrEmptyDataset
	}
	measured := Measure(flights, opts.OnTimeMin)
	if len(measured) == 0 {
		return nil, fmt.Errorf("%d voos lidos: %w", len(flights), ErrNoMeasurable)
	}

	res := &Result{
		Options:    opts,
		Total:      len(flights),
		Measurable: len(measured),
	}
	for _, m := range measured {
		if m.Delayed {
			res.Delayed++
		}
	}

	// 1. 全时段起降机场
	res.TopDestination = Rank(CountBy(measured, func(m Measured) string { return m.Destination }), opts.MinSamples)
	res.TopOrigin = Rank(CountBy(measured, func(m Measured) string { return m.Origin }), opts.MinSamples)

	// 2. 年度变化
	byYear := SplitByYear(measured)
	for y := range byYear {
		res.Years = append(res.Years, y)
	}
	sort.Ints(res.Years)

	var note string
	res.VariationDestination, note = Compare(byYear, "destino", func(m Measured) string { return m.Destination }, opts)
	res.addNote(note)
	res.VariationOrigin, note = Compare(byYear, "origem", func(m Measured) string { return m.Origin }, opts)
	res.addNote(note)

	// 3. 月度趋势
	res.Trend = MonthlyTrend(measured, opts.TrendPolicy)

	// 4-6. 每年的星期、时段、航空公司
	for _, y := range res.Years {
		ms := byYear[y]
		res.Weekday = append(res.Weekday, YearRanking{y, Rank(CountBy(ms, WeekdayOf), opts.MinSamples)})
		res.Period = append(res.Period, YearRanking{y, Rank(CountBy(ms, PeriodOf), opts.MinSamples)})
		res.Airline = append(res.Airline, YearRanking{y, Rank(CountBy(ms, func(m Measured) string { return m.Airline }), opts.MinCountAirline)})
	}
	for _, group := range [][]YearRanking{res.Weekday, res.Period, res.Airline} {
		for _, yr := range group {
			if yr.Ranking.Metric == MetricCount && !yr.Ranking.Empty() {
				res.addNote(fmt.Sprintf("%d: nenhum grupo com ao menos %d voos, ranking por contagem", yr.Year, yr.Ranking.Threshold))
				break
			}
		}
	}
	return res, nil
}

func (r *Result) addNote(note string) {
	if note != "" {
		r.Notes = append(r.Notes, note)
	}
}

// CountBy 按键统计可测数和延误数,空键忽略,结果按键排序
func CountBy(ms []Measured, key func(Measured) string) []Bucket {
	idx := make(map[string]int)
	var buckets []Bucket
	for _, m := range ms {
		k := key(m)
		if k == "" {
			continue
		}
		i, ok := idx[k]
		if !ok {
			i = len(buckets)
			idx[k] = i
			buckets = append(buckets, Bucket{Key: k})
		}
		buckets[i].Total++
		if m.Delayed {
			buckets[i].Delayed++
		}
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].Key < buckets[j].Key })
	return buckets
}

// SplitByYear 按参考时间的年份分组
func SplitByYear(ms []Measured) map[int][]Measured {
	out := make(map[int][]Measured)
	for _, m := range ms {
		if m.Ref.IsZero() {
			continue
		}
		out[m.Ref.Year()] = append(out[m.Ref.Year()], m)
	}
	return out
}

// WeekdayOf 参考时间的星期标签
func WeekdayOf(m Measured) string {
	if m.Ref.IsZero() {
		return ""
	}
	return WeekdayLabels[(int(m.Ref.Weekday())+6)%7]
}

// PeriodOf 参考时间所在时段
func PeriodOf(m Measured) string {
	if m.Ref.IsZero() {
		return ""
	}
	return PeriodLabel(m.Ref.Hour())
}

// PeriodLabel [0,6) madrugada, [6,12) manhã, [12,18) tarde, 其余 noite
func PeriodLabel(hour int) string {
	switch {
	case hour >= 0 && hour < 6:
		return PeriodLabels[0]
	case hour >= 6 && hour < 12:
		return PeriodLabels[1]
	case hour >= 12 && hour < 18:
		return PeriodLabels[2]
	default:
		return PeriodLabels[3]
	}
}
