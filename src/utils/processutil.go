package utils

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/go-gota/gota/dataframe"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// 导出时统一使用的时间格式
const TimeLayout = "2006-01-02 15:04:05"

func Contains[T comparable](slice []T, item T) bool {
	for _, v := range slice {
		if v == item {
			return true
		}
	}
	return false
}

// 辅助函数：判断DataFrame是否有某列
func HasColumn(df dataframe.DataFrame, name string) bool {
	for _, n := range df.Names() {
		if n == name {
			return true
		}
	}
	return false
}

// FoldName 列名折叠:去重音,转小写,只保留字母和数字
// 例如 "ICAOAeródromoOrigem" -> "icaoaerodromoorigem"
func FoldName(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, name)
	if err != nil {
		folded = name
	}

	var b strings.Builder
	for _, r := range strings.ToLower(folded) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// IsMissing gota把缺失值渲染成 "NaN",json里的null读进来是 "<nil>"
func IsMissing(s string) bool {
	switch strings.TrimSpace(s) {
	case "", "NaN", "NA", "<nil>", "null", "NaT":
		return true
	}
	return false
}

// ParseTime 依次尝试layouts;缺失值返回零值时间且不报错
func ParseTime(s string, layouts []string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if IsMissing(s) {
		return time.Time{}, nil
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("horário inválido %q", s)
}

// ExcelSerialToTime excel序列日期转time.Time,基准 1899-12-30,精确到秒
func ExcelSerialToTime(serial float64) (time.Time, error) {
	if math.IsNaN(serial) || math.IsInf(serial, 0) || serial < 0 {
		return time.Time{}, fmt.Errorf("data excel inválida: %v", serial)
	}
	base := time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)
	days := math.Floor(serial)
	secs := math.Round((serial - days) * 86400)
	return base.AddDate(0, 0, int(days)).Add(time.Duration(secs) * time.Second), nil
}

// ExcelCellToTimeString 数字单元格按excel日期处理,其它原样返回
func ExcelCellToTimeString(v string) string {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return v
	}
	// 纯数字但太小的值不是日期(例如航班号)
	if f < 1 {
		return v
	}
	t, err := ExcelSerialToTime(f)
	if err != nil {
		return v
	}
	return t.Format(TimeLayout)
}

// Sheet 一个工作表
type Sheet struct {
	Name string
	Data dataframe.DataFrame
}

// SaveSheetsToExcel 每个DataFrame写成一个工作表
func SaveSheetsToExcel(sheets []Sheet, filePath string) error {
	if len(sheets) == 0 {
		return errors.New("nenhuma planilha para gravar")
	}

	f := excelize.NewFile()
	defer f.Close()

	for i, sh := range sheets {
		name := sheetName(sh.Name)
		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				return fmt.Errorf("renomear planilha: %w", err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("criar planilha %s: %w", name, err)
		}

		df := sh.Data
		// 写入列名
		colNames := df.Names()
		for c, col := range colNames {
			cell, _ := excelize.CoordinatesToCellName(c+1, 1)
			if err := f.SetCellValue(name, cell, col); err != nil {
				return err
			}
		}

		// 写入数据
		records := df.Records()
		for r := 1; r < len(records); r++ {
			for c, val := range records[r] {
				cell, _ := excelize.CoordinatesToCellName(c+1, r+1)
				if err := f.SetCellValue(name, cell, cellValue(val)); err != nil {
					return err
				}
			}
		}
	}

	// 保存文件
	if err := f.SaveAs(filePath); err != nil {
		return fmt.Errorf("salvar arquivo Excel: %w", err)
	}
	return nil
}

// excel工作表名最多31个字符
func sheetName(name string) string {
	r := []rune(name)
	if len(r) > 31 {
		r = r[:31]
	}
	return string(r)
}

// 数字写成数字单元格,缺失值写空
func cellValue(s string) any {
	if IsMissing(s) {
		return ""
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}
