package processor

import "sort"

// 排名使用的指标
const (
	MetricRate  = "taxa"
	MetricCount = "contagem"
)

// Bucket 一个分组的可测航班数和延误数
type Bucket struct {
	Key     string
	Total   int
	Delayed int
}

// Rate 延误率,Total为0时为0
func (b Bucket) Rate() float64 {
	if b.Total == 0 {
		return 0
	}
	return float64(b.Delayed) / float64(b.Total)
}

// Ranking 排名结果及其使用的指标
type Ranking struct {
	Metric    string
	Threshold int
	Buckets   []Bucket // 参与排名的分组,已排序
	All       []Bucket // 所有有可测航班的分组
}

// Empty 没有任何分组
func (r Ranking) Empty() bool {
	return len(r.Buckets) == 0
}

// Leader 第一名
func (r Ranking) Leader() (Bucket, bool) {
	if r.Empty() {
		return Bucket{}, false
	}
	return r.Buckets[0], true
}

// Top 前n名
func (r Ranking) Top(n int) []Bucket {
	if n <= 0 || n >= len(r.Buckets) {
		return r.Buckets
	}
	return r.Buckets[:n]
}

// Value 按排名指标取值
func (r Ranking) Value(b Bucket) float64 {
	if r.Metric == MetricRate {
		return b.Rate()
	}
	return float64(b.Delayed)
}

// Rank 样本数达到阈值的分组按延误率排名(并列时比较延误数,再比较键);
// 没有任何分组达到阈值时,所有分组按延误数排名
func Rank(buckets []Bucket, minSamples int) Ranking {
	var eligible, all []Bucket
	for _, b := range buckets {
		if b.Total == 0 {
			continue
		}
		all = append(all, b)
		if b.Total >= minSamples {
			eligible = append(eligible, b)
		}
	}

	if len(eligible) > 0 {
		sort.SliceStable(eligible, func(i, j int) bool {
			ri, rj := eligible[i].Rate(), eligible[j].Rate()
			if ri != rj {
				return ri > rj
			}
			if eligible[i].Delayed != eligible[j].Delayed {
				return eligible[i].Delayed > eligible[j].Delayed
			}
			return eligible[i].Key < eligible[j].Key
		})
		return Ranking{Metric: MetricRate, Threshold: minSamples, Buckets: eligible, All: all}
	}

	r := RankByCount(all)
	r.Threshold = minSamples
	return r
}

// RankByCount 所有分组按延误数排名,并列时比较键
func RankByCount(buckets []Bucket) Ranking {
	var all []Bucket
	for _, b := range buckets {
		if b.Total > 0 {
			all = append(all, b)
		}
	}
	byCount := append([]Bucket(nil), all...)
	sort.SliceStable(byCount, func(i, j int) bool {
		if byCount[i].Delayed != byCount[j].Delayed {
			return byCount[i].Delayed > byCount[j].Delayed
		}
		return byCount[i].Key < byCount[j].Key
	})
	return Ranking{Metric: MetricCount, Buckets: byCount, All: all}
}

// InOrder 按固定的键顺序取分组(图表用),不存在的键补零
func (r Ranking) InOrder(keys []string) []Bucket {
	byKey := make(map[string]Bucket, len(r.All))
	for _, b := range r.All {
		byKey[b.Key] = b
	}
	out := make([]Bucket, 0, len(keys))
	for _, k := range keys {
		b, ok := byKey[k]
		if !ok {
			b = Bucket{Key: k}
		}
		out = append(out, b)
	}
	return out
}
