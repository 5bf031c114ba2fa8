package processor

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"VRADelays/src/config"
	"VRADelays/src/utils"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// ErrMissingColumns 缺少机场代码列,整个文件无法清洗
var ErrMissingColumns = errors.New("colunas de aeroporto ausentes")

// 丢弃原因
const (
	DropMissingCode   = "codigo_ausente"
	DropBadTimestamp  = "horario_invalido"
	DropNoSchedule    = "sem_horario_previsto"
	DropInternational = "internacional"
	DropMalformed     = "linha_malformada" // 读取时字段数不一致
)

// CleanStats 单次清洗的计数
type CleanStats struct {
	Read    int
	Kept    int
	Dropped map[string]int
}

// DroppedTotal 所有原因丢弃的行数
func (s CleanStats) DroppedTotal() int {
	total := 0
	for _, n := range s.Dropped {
		total += n
	}
	return total
}

// Add 累加另一个文件的计数
func (s *CleanStats) Add(o CleanStats) {
	s.Read += o.Read
	s.Kept += o.Kept
	if s.Dropped == nil {
		s.Dropped = make(map[string]int)
	}
	for k, v := range o.Dropped {
		s.Dropped[k] += v
	}
}

// NormalizeColumns 按折叠后的列名映射到规范列名;同一规范名只取第一列
func NormalizeColumns(df dataframe.DataFrame, dcfg *config.DataConfig) dataframe.DataFrame {
	taken := make(map[string]bool)
	for _, name := range df.Names() {
		taken[name] = true
	}

	for _, name := range df.Names() {
		canonical := dcfg.GetFlightData(utils.FoldName(name))
		if canonical == "" || canonical == name || taken[canonical] {
			continue
		}
		df = df.Rename(canonical, name)
		taken[canonical] = true
		delete(taken, name)
	}
	return df
}

// Clean 规范列名和机场代码,丢弃质量不合格的行,只保留国内航班并追加 rota/ano/mes
func Clean(df dataframe.DataFrame, dcfg *config.DataConfig) (dataframe.DataFrame, CleanStats, error) {
	stats := CleanStats{Read: df.Nrow(), Dropped: make(map[string]int)}

	df = NormalizeColumns(df, dcfg)
	if err := RequireAirportColumns(df); err != nil {
		return df, stats, err
	}

	// 1. 代码去空格转大写
	for _, col := range []string{ColOrigin, ColDestination, ColAirline} {
		if utils.HasColumn(df, col) {
			df = df.Mutate(normalizeCodes(df.Col(col)))
		}
	}

	// 2. 逐行检查并计算派生列
	n := df.Nrow()
	keep := make([]bool, n)
	route := make([]string, n)
	year := make([]string, n)
	month := make([]string, n)

	origin := df.Col(ColOrigin).Records()
	dest := df.Col(ColDestination).Records()
	raw := make(map[string][]string)
	for _, col := range TimeColumns {
		if utils.HasColumn(df, col) {
			raw[col] = df.Col(col).Records()
		}
	}

	for i := 0; i < n; i++ {
		route[i], year[i], month[i] = "NaN", "NaN", "NaN"

		if utils.IsMissing(origin[i]) || utils.IsMissing(dest[i]) {
			stats.Dropped[DropMissingCode]++
			continue
		}

		parsed, ok := parseRowTimes(raw, i, dcfg.TimeLayouts)
		if !ok {
			stats.Dropped[DropBadTimestamp]++
			continue
		}

		ref := parsed[ColScheduledDeparture]
		if ref.IsZero() {
			ref = parsed[ColScheduledArrival]
		}
		if ref.IsZero() {
			stats.Dropped[DropNoSchedule]++
			continue
		}

		keep[i] = true
		route[i] = origin[i] + "-" + dest[i]
		year[i] = strconv.Itoa(ref.Year())
		month[i] = strconv.Itoa(int(ref.Month()))
	}

	df = df.Mutate(series.New(route, series.String, ColRoute)).
		Mutate(series.New(year, series.String, ColYear)).
		Mutate(series.New(month, series.String, ColMonth)).
		Subset(keep)

	// 3. 国内航班:起降两端都以国内前缀开头
	before := df.Nrow()
	domestic := func(el series.Element) bool {
		return IsDomestic(el.String(), dcfg.DomesticPrefixes)
	}
	df = df.FilterAggregation(
		dataframe.And,
		dataframe.F{Colname: ColOrigin, Comparator: series.CompFunc, Comparando: domestic},
		dataframe.F{Colname: ColDestination, Comparator: series.CompFunc, Comparando: domestic},
	)
	if df.Err != nil {
		return df, stats, fmt.Errorf("filtrar voos domésticos: %w", df.Err)
	}
	stats.Dropped[DropInternational] = before - df.Nrow()
	stats.Kept = df.Nrow()
	return df, stats, nil
}

// RequireAirportColumns 规范化后必须有起降机场列
func RequireAirportColumns(df dataframe.DataFrame) error {
	if !utils.HasColumn(df, ColOrigin) || !utils.HasColumn(df, ColDestination) {
		return fmt.Errorf("%w: %s/%s", ErrMissingColumns, ColOrigin, ColDestination)
	}
	return nil
}

// IsDomestic 代码以任一国内前缀开头
func IsDomestic(code string, prefixes []string) bool {
	code = strings.ToUpper(strings.TrimSpace(code))
	if utils.IsMissing(code) {
		return false
	}
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(code, p) {
			return true
		}
	}
	return false
}

func normalizeCodes(s series.Series) series.Series {
	vals := s.Records()
	for i, v := range vals {
		if s.Elem(i).IsNA() {
			vals[i] = "NaN"
			continue
		}
		v = strings.ToUpper(strings.TrimSpace(v))
		if v == "" {
			v = "NaN"
		}
		vals[i] = v
	}
	return series.New(vals, series.String, s.Name)
}

// parseRowTimes 存在的时间都必须能解析
func parseRowTimes(raw map[string][]string, i int, layouts []string) (map[string]time.Time, bool) {
	parsed := make(map[string]time.Time, len(raw))
	for col, vals := range raw {
		t, err := utils.ParseTime(vals[i], layouts)
		if err != nil {
			return nil, false
		}
		parsed[col] = t
	}
	return parsed, true
}
