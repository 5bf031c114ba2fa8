package processor

import (
	"fmt"
	"testing"
	"time"

	"VRADelays/src/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// departed 按计划起飞时间和延误分钟构造航班
func departed(airline, origin, dest, sched string, delay int) Flight {
	s := ts(sched)
	return Flight{
		Airline:            airline,
		Origin:             origin,
		Destination:        dest,
		ScheduledDeparture: s,
		ActualDeparture:    s.Add(time.Duration(delay) * time.Minute),
	}
}

func repeat(n int, f Flight) []Flight {
	out := make([]Flight, n)
	for i := range out {
		out[i] = f
	}
	return out
}

func defaultOptions() Options {
	return OptionsFromConfig(config.Default().Analysis)
}

func TestAnalyze_Errors(t *testing.T) {
	_, err := Analyze(nil, defaultOptions())
	assert.ErrorIs(t, err, ErrEmptyDataset)

	_, err = Analyze([]Flight{{Origin: "SBGR", Destination: "SBRJ", ScheduledDeparture: ts("2022-01-03 10:00")}}, defaultOptions())
	assert.ErrorIs(t, err, ErrNoMeasurable)
}

func TestAnalyze(t *testing.T) {
	var flights []Flight
	// 2021: SBRJ 4 次延误,SBSP 1 次
	flights = append(flights, repeat(4, departed("GLO", "SBGR", "SBRJ", "2021-03-01 07:00", 30))...)
	flights = append(flights, repeat(1, departed("AZU", "SBKP", "SBSP", "2021-03-02 13:00", 20))...)
	flights = append(flights, repeat(5, departed("AZU", "SBKP", "SBSP", "2021-03-02 13:00", 0))...)
	// 2022: SBRJ 1 次,SBSP 6 次
	flights = append(flights, repeat(1, departed("GLO", "SBGR", "SBRJ", "2022-05-06 19:00", 60))...)
	flights = append(flights, repeat(6, departed("AZU", "SBKP", "SBSP", "2022-05-08 02:00", 16))...)
	flights = append(flights, repeat(2, departed("AZU", "SBKP", "SBSP", "2022-05-08 02:00", 15))...)
	// 不可测
	flights = append(flights, Flight{Origin: "SBGR", Destination: "SBPA", ScheduledDeparture: ts("2022-05-01 10:00")})

	res, err := Analyze(flights, defaultOptions())
	require.NoError(t, err)

	assert.Equal(t, 20, res.Total)
	assert.Equal(t, 19, res.Measurable)
	assert.Equal(t, 12, res.Delayed)
	assert.Equal(t, []int{2021, 2022}, res.Years)

	// 样本都不足20,按延误数排名
	assert.Equal(t, MetricCount, res.TopDestination.Metric)
	assert.Equal(t, []string{"SBSP", "SBRJ"}, keys(res.TopDestination.Buckets))
	assert.Equal(t, []string{"SBKP", "SBGR"}, keys(res.TopOrigin.Buckets))

	v := res.VariationDestination
	require.True(t, v.Available)
	assert.Equal(t, 2021, v.FromYear)
	assert.Equal(t, 2022, v.ToYear)
	require.NotNil(t, v.Increase)
	assert.Equal(t, Delta{Key: "SBSP", From: 1, To: 6, Delta: 5}, *v.Increase)
	require.NotNil(t, v.Decrease)
	assert.Equal(t, Delta{Key: "SBRJ", From: 4, To: 1, Delta: -3}, *v.Decrease)

	require.Len(t, res.Trend.Points, 2)
	assert.Equal(t, "2021-03", res.Trend.Points[0].Label())
	assert.Equal(t, "2022-05", res.Trend.Points[1].Label())

	require.Len(t, res.Weekday, 2)
	wd := res.Weekday[1]
	assert.Equal(t, 2022, wd.Year)
	leader, ok := wd.Ranking.Leader()
	require.True(t, ok)
	assert.Equal(t, "Dom", leader.Key)
	assert.Equal(t, 6, leader.Delayed)

	pr := res.Period[0]
	assert.Equal(t, 2021, pr.Year)
	leader, _ = pr.Ranking.Leader()
	assert.Equal(t, "manhã", leader.Key)

	al := res.Airline[1]
	leader, _ = al.Ranking.Leader()
	assert.Equal(t, "AZU", leader.Key)

	assert.NotEmpty(t, res.Notes)
}

func TestAnalyze_AirlineThreshold(t *testing.T) {
	var flights []Flight
	flights = append(flights, departed("AAA", "SBGR", "SBRJ", "2022-01-03 10:00", 30))
	flights = append(flights, departed("AAA", "SBGR", "SBRJ", "2022-01-03 10:00", 0))
	flights = append(flights, repeat(10, departed("BBB", "SBGR", "SBRJ", "2022-01-03 10:00", 30))...)
	flights = append(flights, repeat(40, departed("BBB", "SBGR", "SBRJ", "2022-01-03 10:00", 0))...)

	opts := defaultOptions()
	opts.MinCountAirline = 10
	res, err := Analyze(flights, opts)
	require.NoError(t, err)

	require.Len(t, res.Airline, 1)
	r := res.Airline[0].Ranking
	assert.Equal(t, MetricRate, r.Metric)
	leader, _ := r.Leader()
	assert.Equal(t, "BBB", leader.Key)
	assert.Equal(t, []string{"BBB"}, keys(r.Buckets))
}

func TestWeekdayAndPeriod(t *testing.T) {
	tests := []struct {
		at      string
		weekday string
		period  string
	}{
		{"2022-01-03 00:00", "Seg", "madrugada"},
		{"2022-01-04 05:59", "Ter", "madrugada"},
		{"2022-01-05 06:00", "Qua", "manhã"},
		{"2022-01-06 11:59", "Qui", "manhã"},
		{"2022-01-07 12:00", "Sex", "tarde"},
		{"2022-01-08 18:00", "Sáb", "noite"},
		{"2022-01-09 23:59", "Dom", "noite"},
	}
	for _, tt := range tests {
		t.Run(tt.at, func(t *testing.T) {
			m := Measured{Ref: ts(tt.at)}
			assert.Equal(t, tt.weekday, WeekdayOf(m))
			assert.Equal(t, tt.period, PeriodOf(m))
		})
	}
	assert.Equal(t, "", WeekdayOf(Measured{}))
	assert.Equal(t, "", PeriodOf(Measured{}))
}

func TestCountBy(t *testing.T) {
	ms := Measure([]Flight{
		departed("GLO", "SBGR", "SBRJ", "2022-01-03 10:00", 16),
		departed("GLO", "SBGR", "SBRJ", "2022-01-03 10:00", 15),
		departed("", "SBGR", "SBRJ", "2022-01-03 10:00", 40),
	}, 15)
	got := CountBy(ms, func(m Measured) string { return m.Airline })
	assert.Equal(t, []Bucket{{Key: "GLO", Total: 2, Delayed: 1}}, got)
}

func TestComparisonYears(t *testing.T) {
	years := []int{2019, 2020, 2021, 2022}
	tests := []struct {
		name     string
		years    []int
		policy   string
		baseline int
		from, to int
		note     bool
		ok       bool
	}{
		{"extremes", years, config.ComparisonExtremes, 0, 2019, 2022, false, true},
		{"consecutive", years, config.ComparisonConsecutive, 0, 2021, 2022, false, true},
		{"baseline", years, config.ComparisonBaseline, 2020, 2020, 2022, false, true},
		{"baseline missing", years, config.ComparisonBaseline, 2015, 2019, 2022, true, true},
		{"baseline is last year", years, config.ComparisonBaseline, 2022, 2019, 2022, true, true},
		{"single year", []int{2022}, config.ComparisonExtremes, 0, 0, 0, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			from, to, note, ok := ComparisonYears(tt.years, tt.policy, tt.baseline)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.from, from)
			assert.Equal(t, tt.to, to)
			assert.Equal(t, tt.note, note != "")
		})
	}
}

func byYearFixture() map[int][]Measured {
	var flights []Flight
	flights = append(flights, repeat(20, departed("GLO", "SBGR", "SBRJ", "2021-01-04 10:00", 0))...)
	flights = append(flights, repeat(5, departed("GLO", "SBGR", "SBRJ", "2021-01-04 10:00", 30))...)
	flights = append(flights, repeat(15, departed("GLO", "SBGR", "SBRJ", "2022-01-04 10:00", 0))...)
	flights = append(flights, repeat(10, departed("GLO", "SBGR", "SBRJ", "2022-01-04 10:00", 30))...)
	flights = append(flights, repeat(3, departed("GLO", "SBGR", "SBPA", "2021-01-04 10:00", 30))...)
	return SplitByYear(Measure(flights, 15))
}

func TestCompare_Count(t *testing.T) {
	opts := defaultOptions()
	v, note := Compare(byYearFixture(), "destino", func(m Measured) string { return m.Destination }, opts)
	assert.Empty(t, note)
	assert.Equal(t, MetricCount, v.Metric)
	assert.Equal(t, []Delta{
		{Key: "SBRJ", From: 5, To: 10, Delta: 5},
		{Key: "SBPA", From: 3, To: 0, Delta: -3},
	}, v.Deltas)
	assert.Equal(t, "SBRJ", v.Increase.Key)
	assert.Equal(t, "SBPA", v.Decrease.Key)
}

func TestCompare_Rate(t *testing.T) {
	opts := defaultOptions()
	opts.VariationMetric = config.VariationRate
	v, note := Compare(byYearFixture(), "destino", func(m Measured) string { return m.Destination }, opts)
	assert.Empty(t, note)
	assert.Equal(t, MetricRate, v.Metric)
	// SBPA 样本不足,不参与
	require.Len(t, v.Deltas, 1)
	assert.Equal(t, "SBRJ", v.Deltas[0].Key)
	assert.InDelta(t, 0.2, v.Deltas[0].From, 1e-9)
	assert.InDelta(t, 0.4, v.Deltas[0].To, 1e-9)
	assert.Nil(t, v.Decrease)
}

func TestCompare_RateFallsBackToCount(t *testing.T) {
	opts := defaultOptions()
	opts.VariationMetric = config.VariationRate
	opts.MinSamples = 100
	v, note := Compare(byYearFixture(), "destino", func(m Measured) string { return m.Destination }, opts)
	assert.Equal(t, MetricCount, v.Metric)
	assert.Contains(t, note, "contagem")
	assert.Len(t, v.Deltas, 2)
}

func TestCompare_SingleYear(t *testing.T) {
	byYear := SplitByYear(Measure([]Flight{
		departed("GLO", "SBGR", "SBRJ", "2022-01-04 10:00", 30),
		departed("GLO", "SBGR", "SBPA", "2022-01-04 10:00", 30),
		departed("GLO", "SBGR", "SBPA", "2022-01-04 10:00", 30),
	}, 15))
	v, _ := Compare(byYear, "destino", func(m Measured) string { return m.Destination }, defaultOptions())
	assert.False(t, v.Available)
	assert.Equal(t, 2022, v.SingleYear)
	leader, ok := v.SingleRanking.Leader()
	require.True(t, ok)
	assert.Equal(t, "SBPA", leader.Key)
}

func monthly(rates ...int) []MonthPoint {
	points := make([]MonthPoint, len(rates))
	for i, r := range rates {
		points[i] = MonthPoint{Month: time.Date(2022, time.Month(i+1), 1, 0, 0, 0, 0, time.UTC), Total: 100, Delayed: r}
	}
	return points
}

func TestTrendOf(t *testing.T) {
	tests := []struct {
		name   string
		points []MonthPoint
		policy string
		want   string
	}{
		{"endpoints up", monthly(10, 12, 9, 15), config.TrendEndpoints, TrendUp},
		{"regression up", monthly(10, 12, 9, 15), config.TrendRegression, TrendUp},
		{"endpoints down", monthly(15, 20, 9), config.TrendEndpoints, TrendDown},
		{"endpoints flat", monthly(10, 30, 10), config.TrendEndpoints, TrendFlat},
		{"regression flat", monthly(10, 10, 10), config.TrendRegression, TrendFlat},
		{"regression disagrees with endpoints", monthly(20, 10, 30, 40, 15), config.TrendRegression, TrendUp},
		{"endpoints disagree with regression", monthly(20, 10, 30, 40, 15), config.TrendEndpoints, TrendDown},
		{"single point", monthly(10), config.TrendEndpoints, TrendIndeterminate},
		{"no points", nil, config.TrendRegression, TrendIndeterminate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TrendOf(tt.points, tt.policy).Direction)
		})
	}
}

func TestTrendOf_Slope(t *testing.T) {
	tr := TrendOf(monthly(10, 12, 9, 15), config.TrendRegression)
	assert.InDelta(t, 0.012, tr.Slope, 1e-9)
	first, _ := tr.First()
	last, _ := tr.Last()
	assert.Equal(t, 0.10, first.Rate())
	assert.Equal(t, 0.15, last.Rate())
}

func TestTrendOf_SlopeSpansMissingMonths(t *testing.T) {
	points := []MonthPoint{
		{Month: time.Date(2022, 11, 1, 0, 0, 0, 0, time.UTC), Total: 100, Delayed: 10},
		{Month: time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC), Total: 100, Delayed: 30},
	}
	tr := TrendOf(points, config.TrendRegression)
	// 0.10 -> 0.30 相隔4个月
	assert.InDelta(t, 0.05, tr.Slope, 1e-9)
	assert.Equal(t, TrendUp, tr.Direction)
	assert.Equal(t, 4, monthsBetween(points[0].Month, points[1].Month))
}

func TestMonthlyTrend(t *testing.T) {
	var flights []Flight
	for m := 3; m >= 1; m-- {
		sched := fmt.Sprintf("2022-%02d-10 10:00", m)
		flights = append(flights, departed("GLO", "SBGR", "SBRJ", sched, 30))
		flights = append(flights, repeat(m, departed("GLO", "SBGR", "SBRJ", sched, 0))...)
	}
	tr := MonthlyTrend(Measure(flights, 15), config.TrendEndpoints)
	require.Len(t, tr.Points, 3)
	assert.Equal(t, "2022-01", tr.Points[0].Label())
	assert.Equal(t, 2, tr.Points[0].Total)
	assert.Equal(t, 4, tr.Points[2].Total)
	assert.Equal(t, TrendDown, tr.Direction)
}
