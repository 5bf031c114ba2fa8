package processor

import (
	"fmt"
	"sort"

	"VRADelays/src/config"
)

// Delta 一个机场在两个比较年份之间的变化
type Delta struct {
	Key   string
	From  float64
	To    float64
	Delta float64
}

// Variation 机场延误指标的年度变化
type Variation struct {
	Axis      string // destino | origem
	Available bool
	FromYear  int
	ToYear    int
	Metric    string // contagem | taxa
	Deltas    []Delta

	Increase *Delta // 最大正变化
	Decrease *Delta // 最小负变化

	// 只有一年数据时,改为该年按延误数的排名
	SingleYear    int
	SingleRanking Ranking
}

// ComparisonYears 按策略选出比较的两个年份;baseline年份不可用时退回首尾年份并给出说明
func ComparisonYears(years []int, policy string, baseline int) (from, to int, note string, ok bool) {
	if len(years) < 2 {
		return 0, 0, "", false
	}
	first, last := years[0], years[len(years)-1]

	switch policy {
	case config.ComparisonConsecutive:
		return years[len(years)-2], last, "", true
	case config.ComparisonBaseline:
		for _, y := range years {
			if y == baseline && y != last {
				return baseline, last, "", true
			}
		}
		return first, last, fmt.Sprintf("ano base %d indisponível, comparando %d com %d", baseline, first, last), true
	default:
		return first, last, "", true
	}
}

// Compare 计算每个机场在两个比较年份之间的延误指标变化
func Compare(byYear map[int][]Measured, axis string, key func(Measured) string, opts Options) (Variation, string) {
	years := make([]int, 0, len(byYear))
	for y := range byYear {
		years = append(years, y)
	}
	sort.Ints(years)

	v := Variation{Axis: axis}
	from, to, note, ok := ComparisonYears(years, opts.ComparisonPolicy, opts.BaselineYear)
	if !ok {
		if len(years) == 1 {
			v.SingleYear = years[0]
			v.SingleRanking = RankByCount(CountBy(byYear[years[0]], key))
		}
		return v, ""
	}
	v.Available = true
	v.FromYear, v.ToYear = from, to

	a := indexBuckets(CountBy(byYear[from], key))
	b := indexBuckets(CountBy(byYear[to], key))

	if opts.VariationMetric == config.VariationRate {
		v.Metric = MetricRate
		for k, ba := range a {
			bb, ok := b[k]
			if !ok || ba.Total < opts.MinSamples || bb.Total < opts.MinSamples {
				continue
			}
			v.Deltas = append(v.Deltas, Delta{Key: k, From: ba.Rate(), To: bb.Rate(), Delta: bb.Rate() - ba.Rate()})
		}
		if len(v.Deltas) == 0 {
			note = joinNotes(note, fmt.Sprintf("variação por %s: nenhum aeroporto com ao menos %d voos em %d e %d, usando contagem", axis, opts.MinSamples, from, to))
		}
	}

	if len(v.Deltas) == 0 {
		v.Metric = MetricCount
		keys := make(map[string]bool)
		for k := range a {
			keys[k] = true
		}
		for k := range b {
			keys[k] = true
		}
		for k := range keys {
			fa, fb := float64(a[k].Delayed), float64(b[k].Delayed)
			v.Deltas = append(v.Deltas, Delta{Key: k, From: fa, To: fb, Delta: fb - fa})
		}
	}

	sort.Slice(v.Deltas, func(i, j int) bool {
		if v.Deltas[i].Delta != v.Deltas[j].Delta {
			return v.Deltas[i].Delta > v.Deltas[j].Delta
		}
		return v.Deltas[i].Key < v.Deltas[j].Key
	})
	if inc := v.Increases(); len(inc) > 0 {
		v.Increase = &inc[0]
	}
	if dec := v.Decreases(); len(dec) > 0 {
		v.Decrease = &dec[0]
	}
	return v, note
}

// Increases 正变化,从大到小
func (v Variation) Increases() []Delta {
	var out []Delta
	for _, d := range v.Deltas {
		if d.Delta > 0 {
			out = append(out, d)
		}
	}
	return out
}

// Decreases 负变化,从最负开始
func (v Variation) Decreases() []Delta {
	var out []Delta
	for _, d := range v.Deltas {
		if d.Delta < 0 {
			out = append(out, d)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Delta != out[j].Delta {
			return out[i].Delta < out[j].Delta
		}
		return out[i].Key < out[j].Key
	})
	return out
}

func indexBuckets(bs []Bucket) map[string]Bucket {
	m := make(map[string]Bucket, len(bs))
	for _, b := range bs {
		m[b.Key] = b
	}
	return m
}

func joinNotes(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	default:
		return a + "; " + b
	}
}
