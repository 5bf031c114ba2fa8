package datapush

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"VRADelays/src/processor"
	"VRADelays/src/utils"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// 统计表文件名
const (
	TableTopDestination       = "airport_destino_mais_atrasos.csv"
	TableTopOrigin            = "airport_origem_mais_atrasos.csv"
	TableVariationDestination = "aeroporto_destino_variacao_atrasos.csv"
	TableVariationOrigin      = "aeroporto_origem_variacao_atrasos.csv"
	TableTrend                = "tendencia_mensal_taxa_atraso.csv"
	TableWeekday              = "dias_semana_atrasos_por_ano.csv"
	TablePeriod               = "periodo_dia_atrasos_por_ano.csv"
	TableAirline              = "companhias_taxa_atraso_por_ano.csv"
	Workbook                  = "tabelas.xlsx"
)

// 表头
const (
	colPosition = "posicao"
	colTotal    = "voos"
	colDelayed  = "atrasados"
	colRate     = "taxa_atraso"
	colMetric   = "metrica"
	colYear     = "ano"
)

// Table 一张统计表
type Table struct {
	Name  string // 文件名
	Sheet string // 工作表名
	Data  dataframe.DataFrame
}

// Tables 把统计结果整理成表
func Tables(res *processor.Result) []Table {
	return []Table{
		{TableTopDestination, "destino", RankingTable(res.TopDestination, "aeroporto")},
		{TableTopOrigin, "origem", RankingTable(res.TopOrigin, "aeroporto")},
		{TableVariationDestination, "variacao_destino", VariationTable(res.VariationDestination)},
		{TableVariationOrigin, "variacao_origem", VariationTable(res.VariationOrigin)},
		{TableTrend, "tendencia", TrendTable(res.Trend)},
		{TableWeekday, "dias_semana", YearTable(res.Weekday, "dia_semana")},
		{TablePeriod, "periodo_dia", YearTable(res.Period, "periodo")},
		{TableAirline, "companhias", YearTable(res.Airline, "cia_icao")},
	}
}

// WriteTables 每张表写一个CSV,再合并写一个xlsx
func WriteTables(res *processor.Result, dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("criar diretório %s: %w", dir, err)
	}

	tables := Tables(res)
	var paths []string
	sheets := make([]utils.Sheet, 0, len(tables))
	for _, t := range tables {
		if t.Data.Err != nil {
			return paths, fmt.Errorf("tabela %s: %w", t.Name, t.Data.Err)
		}
		path := filepath.Join(dir, t.Name)
		data := t.Data
		if err := writeFile(path, false, func(w io.Writer) error { return WriteCSV(w, data) }); err != nil {
			return paths, err
		}
		paths = append(paths, path)
		sheets = append(sheets, utils.Sheet{Name: t.Sheet, Data: t.Data})
	}

	path := filepath.Join(dir, Workbook)
	if err := utils.SaveSheetsToExcel(sheets, path); err != nil {
		return paths, fmt.Errorf("%s: %w", path, err)
	}
	return append(paths, path), nil
}

type rankingColumns struct {
	year     []int
	position []int
	key      []string
	total    []int
	delayed  []int
	rate     []float64
	metric   []string
}

func (c *rankingColumns) add(year int, r processor.Ranking) {
	for i, b := range r.Buckets {
		c.year = append(c.year, year)
		c.position = append(c.position, i+1)
		c.key = append(c.key, b.Key)
		c.total = append(c.total, b.Total)
		c.delayed = append(c.delayed, b.Delayed)
		c.rate = append(c.rate, b.Rate())
		c.metric = append(c.metric, r.Metric)
	}
}

func (c *rankingColumns) frame(keyName string, withYear bool) dataframe.DataFrame {
	cols := []series.Series{}
	if withYear {
		cols = append(cols, series.New(c.year, series.Int, colYear))
	}
	cols = append(cols,
		series.New(c.position, series.Int, colPosition),
		series.New(c.key, series.String, keyName),
		series.New(c.total, series.Int, colTotal),
		series.New(c.delayed, series.Int, colDelayed),
		series.New(c.rate, series.Float, colRate),
		series.New(c.metric, series.String, colMetric),
	)
	return dataframe.New(cols...)
}

// RankingTable 排名表,按名次排列
func RankingTable(r processor.Ranking, keyName string) dataframe.DataFrame {
	c := &rankingColumns{}
	c.add(0, r)
	return c.frame(keyName, false)
}

// YearTable 每年一段排名,年份升序
func YearTable(yrs []processor.YearRanking, keyName string) dataframe.DataFrame {
	c := &rankingColumns{}
	for _, yr := range yrs {
		c.add(yr.Year, yr.Ranking)
	}
	return c.frame(keyName, true)
}

// VariationTable 两个比较年份之间的变化;只有一年时输出该年的延误数排名
func VariationTable(v processor.Variation) dataframe.DataFrame {
	if !v.Available {
		c := &rankingColumns{}
		c.add(v.SingleYear, v.SingleRanking)
		return c.frame("aeroporto", true)
	}

	n := len(v.Deltas)
	key := make([]string, n)
	from := make([]float64, n)
	to := make([]float64, n)
	delta := make([]float64, n)
	for i, d := range v.Deltas {
		key[i], from[i], to[i], delta[i] = d.Key, d.From, d.To, d.Delta
	}
	return dataframe.New(
		series.New(key, series.String, "aeroporto"),
		series.New(from, series.Float, fmt.Sprintf("valor_%d", v.FromYear)),
		series.New(to, series.Float, fmt.Sprintf("valor_%d", v.ToYear)),
		series.New(delta, series.Float, "delta"),
		series.New(repeat(v.Metric, n), series.String, colMetric),
	)
}

// TrendTable 月度延误率
func TrendTable(t processor.Trend) dataframe.DataFrame {
	n := len(t.Points)
	month := make([]string, n)
	total := make([]int, n)
	delayed := make([]int, n)
	rate := make([]float64, n)
	for i, p := range t.Points {
		month[i], total[i], delayed[i], rate[i] = p.Label(), p.Total, p.Delayed, p.Rate()
	}
	return dataframe.New(
		series.New(month, series.String, "mes"),
		series.New(total, series.Int, colTotal),
		series.New(delayed, series.Int, colDelayed),
		series.New(rate, series.Float, colRate),
	)
}

func repeat(s string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = s
	}
	return out
}
