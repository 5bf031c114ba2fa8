// reader.go
package file

import (
	"bytes"
	"compress/gzip"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"VRADelays/src/utils"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/tealeg/xlsx"
	"golang.org/x/text/encoding/charmap"
)

// ErrUninterpretable 文件可以读取但内容无法解析(或为空)
var ErrUninterpretable = errors.New("conteúdo não interpretável")

// 读入时视为缺失的值
var nanValues = []string{"", "NA", "NaN", "<nil>", "null", "NaT"}

var (
	reGlued         = regexp.MustCompile(`}\s*{`)
	reTrailingComma = regexp.MustCompile(`,\s*([\]}])`)
	reFlatObject    = regexp.MustCompile(`\{[^{}]*\}`)
)

// 时间列关键字(作用于折叠后的列名)
var timeKeywords = []string{"prevista", "real", "partida", "chegada", "data", "hora"}

// Result 单个文件的读取结果
type Result struct {
	Data      dataframe.DataFrame
	Format    string // csv | json | ndjson | xlsx
	Malformed int    // 字段数与表头不一致而丢弃的行
}

// Rows 读取到的行数
func (r *Result) Rows() int {
	return r.Data.Nrow()
}

// ReadVRAFile 读取一个VRA文件(csv/json/ndjson/xlsx,可带.gz)
// 打开、读取、解压失败返回I/O错误;内容无法解析返回 ErrUninterpretable
func ReadVRAFile(filePath, sheetName string) (*Result, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("ler %s: %w", filePath, err)
	}

	name := strings.ToLower(filepath.Base(filePath))
	if strings.HasSuffix(name, ".gz") {
		data, err = gunzip(data)
		if err != nil {
			return nil, fmt.Errorf("descompactar %s: %w", filePath, err)
		}
		name = strings.TrimSuffix(name, ".gz")
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%s: arquivo vazio: %w", filePath, ErrUninterpretable)
	}

	var res *Result
	switch filepath.Ext(name) {
	case ".xlsx":
		res, err = readXLSX(data, sheetName)
	case ".json", ".ndjson", ".jsonl":
		res, err = readJSON(decodeText(data))
	case ".csv", ".txt":
		res, err = readCSV(decodeText(data))
	default:
		// 无扩展名时根据首字符判断
		text := decodeText(data)
		if t := strings.TrimSpace(text); strings.HasPrefix(t, "[") || strings.HasPrefix(t, "{") {
			res, err = readJSON(text)
		} else {
			res, err = readCSV(text)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filePath, err)
	}
	return res, nil
}

func gunzip(data []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}

// decodeText UTF-8(去BOM),否则按ISO-8859-1解码
func decodeText(data []byte) string {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if utf8.Valid(data) {
		return string(data)
	}
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return string(data)
	}
	return string(decoded)
}

// readJSON 依次尝试:数组、每行一个对象、修复后的数组、提取扁平对象
func readJSON(text string) (*Result, error) {
	text = strings.TrimSpace(strings.ReplaceAll(text, "\ufeff", ""))

	if strings.HasPrefix(text, "[") {
		if rows, err := decodeArray(text); err == nil {
			return jsonResult(rows, "json")
		}
	}
	if rows, ok := decodeLines(text); ok {
		return jsonResult(rows, "ndjson")
	}
	if rows, err := decodeArray(repairJSON(text)); err == nil {
		return jsonResult(rows, "json")
	}

	// 最后手段:提取不含嵌套的对象
	var rows []map[string]any
	for _, obj := range reFlatObject.FindAllString(text, -1) {
		if row, err := decodeObject(obj); err == nil {
			rows = append(rows, row)
		}
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("JSON inválido: %w", ErrUninterpretable)
	}
	return jsonResult(rows, "json")
}

// repairJSON 处理对象直接相连、缺少方括号、多余逗号
func repairJSON(text string) string {
	fix := reGlued.ReplaceAllString(text, "},{")
	fix = strings.TrimSpace(fix)
	fix = strings.TrimSuffix(fix, ",")
	if !strings.HasPrefix(fix, "[") {
		fix = "[" + fix
	}
	if !strings.HasSuffix(fix, "]") {
		fix = fix + "]"
	}
	return reTrailingComma.ReplaceAllString(fix, "$1")
}

func decodeArray(text string) ([]map[string]any, error) {
	var rows []map[string]any
	if err := decodeStrict(text, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func decodeObject(text string) (map[string]any, error) {
	var row map[string]any
	if err := decodeStrict(text, &row); err != nil {
		return nil, err
	}
	return row, nil
}

// decodeStrict 数字保留为json.Number,值后面不允许还有内容
func decodeStrict(text string, v any) error {
	d := json.NewDecoder(strings.NewReader(text))
	d.UseNumber()
	if err := d.Decode(v); err != nil {
		return err
	}
	if d.More() {
		return errors.New("dados após o fim do JSON")
	}
	return nil
}

// decodeLines 每个非空行都必须是一个对象(行尾逗号容忍)
func decodeLines(text string) ([]map[string]any, bool) {
	var rows []map[string]any
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSuffix(strings.TrimSpace(line), ",")
		if line == "" {
			continue
		}
		row, err := decodeObject(line)
		if err != nil {
			return nil, false
		}
		rows = append(rows, row)
	}
	return rows, len(rows) > 0
}

func jsonResult(rows []map[string]any, format string) (*Result, error) {
	// 列顺序按首次出现
	var header []string
	seen := make(map[string]bool)
	for _, row := range rows {
		keys := make([]string, 0, len(row))
		for k := range row {
			if !seen[k] {
				keys = append(keys, k)
			}
		}
		// map无序,同一行新出现的列按名称排
		sort.Strings(keys)
		for _, k := range keys {
			seen[k] = true
			header = append(header, k)
		}
	}

	records := make([][]string, 0, len(rows)+1)
	records = append(records, header)
	for _, row := range rows {
		rec := make([]string, len(header))
		for i, k := range header {
			rec[i] = jsonValue(row[k])
		}
		records = append(records, rec)
	}

	df, err := loadRecords(records)
	if err != nil {
		return nil, err
	}
	return &Result{Data: df, Format: format}, nil
}

func jsonValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "NaN"
	case string:
		return val
	case json.Number:
		return val.String()
	case map[string]any, []any:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	default:
		return fmt.Sprint(val)
	}
}

// readCSV 分隔符从表头行推断(; 或 ,),字段数不一致的行丢弃
func readCSV(text string) (*Result, error) {
	r := csv.NewReader(strings.NewReader(text))
	r.Comma = sniffDelimiter(text)
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	all, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("CSV inválido: %v: %w", err, ErrUninterpretable)
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("CSV sem cabeçalho: %w", ErrUninterpretable)
	}

	header := make([]string, len(all[0]))
	for i, h := range all[0] {
		header[i] = strings.TrimSpace(h)
	}
	records := [][]string{header}
	malformed := 0
	for _, rec := range all[1:] {
		if isBlank(rec) {
			continue
		}
		if len(rec) != len(header) {
			malformed++
			continue
		}
		records = append(records, rec)
	}

	df, err := loadRecords(records)
	if err != nil {
		return nil, err
	}
	return &Result{Data: df, Format: "csv", Malformed: malformed}, nil
}

func sniffDelimiter(text string) rune {
	first := text
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		first = text[:i]
	}
	if strings.Count(first, ";") > strings.Count(first, ",") {
		return ';'
	}
	return ','
}

func isBlank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// readXLSX 第一行为表头;sheetName为空或不存在时取第一个工作表
func readXLSX(data []byte, sheetName string) (*Result, error) {
	// 1. 使用tealeg/xlsx打开Excel文件
	xlFile, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, fmt.Errorf("xlsx inválido: %v: %w", err, ErrUninterpretable)
	}

	// 2. 获取工作表
	if len(xlFile.Sheets) == 0 {
		return nil, fmt.Errorf("xlsx sem planilhas: %w", ErrUninterpretable)
	}
	sheet := xlFile.Sheets[0]
	if s, ok := xlFile.Sheet[sheetName]; ok && sheetName != "" {
		sheet = s
	}
	if len(sheet.Rows) == 0 {
		return nil, fmt.Errorf("planilha %s vazia: %w", sheet.Name, ErrUninterpretable)
	}

	// 3. 转换为records
	var header []string
	for _, cell := range sheet.Rows[0].Cells {
		header = append(header, strings.TrimSpace(cell.Value))
	}
	timeCols := findTimeColumns(header)

	records := [][]string{header}
	for _, row := range sheet.Rows[1:] {
		if row == nil {
			continue
		}
		rec := make([]string, len(header))
		for i, cell := range row.Cells {
			if i >= len(header) || cell == nil {
				continue
			}
			v := cell.Value
			if timeCols[i] {
				v = utils.ExcelCellToTimeString(v)
			}
			rec[i] = v
		}
		if isBlank(rec) {
			continue
		}
		records = append(records, rec)
	}

	df, err := loadRecords(records)
	if err != nil {
		return nil, err
	}
	return &Result{Data: df, Format: "xlsx"}, nil
}

// 辅助函数：查找可能是时间类型的列
func findTimeColumns(header []string) map[int]bool {
	timeCols := make(map[int]bool)
	for i, col := range header {
		folded := utils.FoldName(col)
		for _, kw := range timeKeywords {
			if strings.Contains(folded, kw) {
				timeCols[i] = true
				break
			}
		}
	}
	return timeCols
}

// loadRecords 所有列按字符串载入
func loadRecords(records [][]string) (dataframe.DataFrame, error) {
	if len(records) < 2 {
		return dataframe.DataFrame{}, fmt.Errorf("nenhum registro: %w", ErrUninterpretable)
	}
	df := dataframe.LoadRecords(records,
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues(nanValues),
	)
	if df.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("%v: %w", df.Err, ErrUninterpretable)
	}
	return df, nil
}
