package processor

import (
	"sort"
	"time"

	"VRADelays/src/config"

	"gonum.org/v1/gonum/stat"
)

// 趋势方向
const (
	TrendUp            = "aumento"
	TrendDown          = "queda"
	TrendFlat          = "estável"
	TrendIndeterminate = "indeterminada"
)

const slopeEpsilon = 1e-12

// MonthPoint 一个月的可测航班数和延误数
type MonthPoint struct {
	Month   time.Time // 当月第一天 UTC
	Total   int
	Delayed int
}

// Rate 当月延误率
func (p MonthPoint) Rate() float64 {
	return Bucket{Total: p.Total, Delayed: p.Delayed}.Rate()
}

// Label 例如 2022-03
func (p MonthPoint) Label() string {
	return p.Month.Format("2006-01")
}

// Trend 月度延误率序列及整体方向
type Trend struct {
	Policy    string
	Points    []MonthPoint
	Slope     float64 // 最小二乘斜率,按相隔月数计算的每月延误率变化
	Direction string
}

// First 第一个点
func (t Trend) First() (MonthPoint, bool) {
	if len(t.Points) == 0 {
		return MonthPoint{}, false
	}
	return t.Points[0], true
}

// Last 最后一个点
func (t Trend) Last() (MonthPoint, bool) {
	if len(t.Points) == 0 {
		return MonthPoint{}, false
	}
	return t.Points[len(t.Points)-1], true
}

// MonthlyTrend 按参考时间的年月汇总,没有可测航班的月份不出现
func MonthlyTrend(ms []Measured, policy string) Trend {
	idx := make(map[time.Time]int)
	var points []MonthPoint
	for _, m := range ms {
		if m.Ref.IsZero() {
			continue
		}
		month := time.Date(m.Ref.Year(), m.Ref.Month(), 1, 0, 0, 0, 0, time.UTC)
		i, ok := idx[month]
		if !ok {
			i = len(points)
			idx[month] = i
			points = append(points, MonthPoint{Month: month})
		}
		points[i].Total++
		if m.Delayed {
			points[i].Delayed++
		}
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Month.Before(points[j].Month) })
	return TrendOf(points, policy)
}

// TrendOf 计算斜率和方向;少于两个点时方向不确定
func TrendOf(points []MonthPoint, policy string) Trend {
	t := Trend{Policy: policy, Points: points, Direction: TrendIndeterminate}
	if len(points) < 2 {
		return t
	}

	rates := make([]float64, len(points))
	xs := make([]float64, len(points))
	for i, p := range points {
		xs[i] = float64(monthsBetween(points[0].Month, p.Month))
		rates[i] = p.Rate()
	}
	_, t.Slope = stat.LinearRegression(xs, rates, nil, false)

	var diff float64
	if policy == config.TrendRegression {
		diff = t.Slope
	} else {
		diff = rates[len(rates)-1] - rates[0]
	}
	t.Direction = direction(diff)
	return t
}

// monthsBetween 两个月份之间相隔的月数,缺失的月份也计入
func monthsBetween(from, to time.Time) int {
	return (to.Year()-from.Year())*12 + int(to.Month()) - int(from.Month())
}

func direction(diff float64) string {
	switch {
	case diff > slopeEpsilon:
		return TrendUp
	case diff < -slopeEpsilon:
		return TrendDown
	default:
		return TrendFlat
	}
}
