package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// 环境变量覆盖(只允许覆盖路径)
const (
	EnvConfigDir = "VRA_CONFIG_DIR"
	EnvDataDir   = "VRA_DATA_DIR"
	EnvOutDir    = "VRA_OUT_DIR"
	EnvReportDir = "VRA_REPORT_DIR"
)

// 比较周期策略
const (
	ComparisonExtremes    = "extremes"
	ComparisonConsecutive = "consecutive"
	ComparisonBaseline    = "baseline"
)

// 变化量指标
const (
	VariationCount = "count"
	VariationRate  = "rate"
)

// 趋势判定策略
const (
	TrendEndpoints  = "endpoints"
	TrendRegression = "regression"
)

// Config 结构体定义了应用程序的配置结构
type Config struct {
	DataDir     string `json:"data_dir" yaml:"data_dir"`         // 原始VRA文件目录
	OutDir      string `json:"out_dir" yaml:"out_dir"`           // 清洗结果目录
	ReportDir   string `json:"report_dir" yaml:"report_dir"`     // 报告输出目录
	LogName     string `json:"log_name" yaml:"log_name"`         // 日志文件,为空时只输出到控制台
	LogLevel    string `json:"log_level" yaml:"log_level"`       // debug/info/warning/error
	LogMaxSize  string `json:"log_max_size" yaml:"log_max_size"` // 例如 "10 * 1024 * 1024"
	MetricsFile string `json:"metrics_file" yaml:"metrics_file"` // prometheus textfile,为空时不写

	Clean    CleanConfig    `json:"clean" yaml:"clean"`
	Analysis AnalysisConfig `json:"analysis" yaml:"analysis"`
}

// CleanConfig 清洗阶段的输出格式
type CleanConfig struct {
	Format string `json:"format" yaml:"format"` // csv | json | both
	NDJSON bool   `json:"ndjson" yaml:"ndjson"`
	Gzip   bool   `json:"gzip" yaml:"gzip"`
}

// AnalysisConfig 统计阶段的阈值与策略
type AnalysisConfig struct {
	OnTimeMin        int    `json:"on_time_min" yaml:"on_time_min"`
	MinSamples       int    `json:"min_samples" yaml:"min_samples"`
	MinCountAirline  int    `json:"min_count_airline" yaml:"min_count_airline"`
	TopN             int    `json:"top_n" yaml:"top_n"`
	TopNAirline      int    `json:"top_n_airline" yaml:"top_n_airline"`
	ComparisonPolicy string `json:"comparison_policy" yaml:"comparison_policy"`
	BaselineYear     int    `json:"baseline_year" yaml:"baseline_year"`
	VariationMetric  string `json:"variation_metric" yaml:"variation_metric"`
	TrendPolicy      string `json:"trend_policy" yaml:"trend_policy"`
}

// DataConfig 数据相关的映射配置
type DataConfig struct {
	FlightData       map[string]string `json:"flightData" yaml:"flightData"`             // 折叠后的列名 -> 规范列名
	DomesticPrefixes []string          `json:"domesticPrefixes" yaml:"domesticPrefixes"` // 国内机场ICAO前缀
	TimeLayouts      []string          `json:"timeLayouts" yaml:"timeLayouts"`
	SheetName        string            `json:"sheetName" yaml:"sheetName"` // xlsx输入的工作表,为空取第一个
}

// Default 返回内置默认配置
func Default() *Config {
	return &Config{
		DataDir:    "./data",
		OutDir:     "./out",
		ReportDir:  "./relatorio",
		LogLevel:   "info",
		LogMaxSize: "10 * 1024 * 1024",
		Clean: CleanConfig{
			Format: "both",
		},
		Analysis: AnalysisConfig{
			OnTimeMin:        15,
			MinSamples:       20,
			MinCountAirline:  20,
			TopN:             20,
			TopNAirline:      10,
			ComparisonPolicy: ComparisonExtremes,
			VariationMetric:  VariationCount,
			TrendPolicy:      TrendEndpoints,
		},
	}
}

// DefaultDataConfig 返回VRA列名映射等默认数据配置
func DefaultDataConfig() *DataConfig {
	return &DataConfig{
		FlightData: map[string]string{
			"icaoempresaaerea":     "cia_icao",
			"numerovoo":            "numero_voo",
			"codigoautorizacao":    "codigo_autorizacao",
			"codigoautorizacaodi":  "codigo_autorizacao",
			"codigotipolinha":      "codigo_tipo_linha",
			"icaoaerodromoorigem":  "origem_icao",
			"icaoaerodromodestino": "destino_icao",
			"partidaprevista":      "partida_prevista",
			"partidareal":          "partida_real",
			"chegadaprevista":      "chegada_prevista",
			"chegadareal":          "chegada_real",
			"situacaovoo":          "situacao_voo",
			"codigojustificativa":  "codigo_justificativa",

			// 已规范化的列名折叠后映射到自身,保证重复清洗结果不变
			"ciaicao":     "cia_icao",
			"origemicao":  "origem_icao",
			"destinoicao": "destino_icao",
		},
		DomesticPrefixes: []string{"SB", "SD", "SN", "SS", "SW"},
		TimeLayouts: []string{
			"2006-01-02 15:04:05",
			"2006-01-02T15:04:05",
			time.RFC3339,
			"2006-01-02T15:04:05.000",
			"2006-01-02 15:04",
			"02/01/2006 15:04:05",
			"02/01/2006 15:04",
			"2006-01-02",
		},
	}
}

// DefaultConfigDir 未指定配置目录且没有 VRA_CONFIG_DIR 时使用
const DefaultConfigDir = "./config"

// LoadConfig 读取配置文件;文件不存在时使用默认值。
// jsonFolder 为空时取 VRA_CONFIG_DIR,再退回 DefaultConfigDir;
// .json 文件不存在时依次尝试同名的 .yaml、.yml
func LoadConfig(jsonFolder, jsonFile, dataJsonFile string) (*Config, *DataConfig, error) {
	if jsonFolder == "" {
		jsonFolder = os.Getenv(EnvConfigDir)
	}
	if jsonFolder == "" {
		jsonFolder = DefaultConfigDir
	}

	cfg := Default()
	dcfg := DefaultDataConfig()

	var errs []error
	if err := loadInto(filepath.Join(jsonFolder, jsonFile), cfg); err != nil {
		errs = append(errs, fmt.Errorf("config inválida: %w", err))
	}

	overrides := &DataConfig{}
	if err := loadInto(filepath.Join(jsonFolder, dataJsonFile), overrides); err != nil {
		errs = append(errs, fmt.Errorf("dataconfig inválida: %w", err))
	}
	if len(errs) > 0 {
		return nil, nil, combineErrors(errs)
	}
	dcfg.merge(overrides)

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return cfg, dcfg, nil
}

// loadInto 根据扩展名解析json或yaml;文件不存在不算错误
func loadInto(filePath string, v any) error {
	if filePath == "" || strings.HasSuffix(filePath, string(filepath.Separator)) {
		return nil
	}
	filePath = resolveFile(filePath)
	data, err := readFile(filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}

	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, v)
	default:
		err = json.Unmarshal(data, v)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", filePath, err)
	}
	return nil
}

// resolveFile .json 不存在时返回第一个存在的 .yaml/.yml,都不存在时原样返回
func resolveFile(filePath string) string {
	ext := filepath.Ext(filePath)
	if strings.ToLower(ext) != ".json" || exists(filePath) {
		return filePath
	}
	stem := strings.TrimSuffix(filePath, ext)
	for _, alt := range []string{".yaml", ".yml"} {
		if exists(stem + alt) {
			return stem + alt
		}
	}
	return filePath
}

func exists(filePath string) bool {
	info, err := os.Stat(filePath)
	return err == nil && !info.IsDir()
}

func readFile(filePath string) ([]byte, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("não foi possível ler %s: %w", filePath, err)
	}
	return data, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvDataDir); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv(EnvOutDir); v != "" {
		c.OutDir = v
	}
	if v := os.Getenv(EnvReportDir); v != "" {
		c.ReportDir = v
	}
}

// Validate 检查阈值与策略名称
func (c *Config) Validate() error {
	var errs []error
	switch c.Clean.Format {
	case "csv", "json", "both":
	default:
		errs = append(errs, fmt.Errorf("clean.format inválido: %q", c.Clean.Format))
	}

	a := c.Analysis
	if a.OnTimeMin < 0 {
		errs = append(errs, fmt.Errorf("analysis.on_time_min não pode ser negativo: %d", a.OnTimeMin))
	}
	if a.MinSamples < 1 {
		errs = append(errs, fmt.Errorf("analysis.min_samples deve ser maior que 0: %d", a.MinSamples))
	}
	if a.MinCountAirline < 1 {
		errs = append(errs, fmt.Errorf("analysis.min_count_airline deve ser maior que 0: %d", a.MinCountAirline))
	}
	if a.TopN < 1 || a.TopNAirline < 1 {
		errs = append(errs, errors.New("analysis.top_n e top_n_airline devem ser maiores que 0"))
	}
	switch a.ComparisonPolicy {
	case ComparisonExtremes, ComparisonConsecutive:
	case ComparisonBaseline:
		if a.BaselineYear <= 0 {
			errs = append(errs, errors.New("analysis.comparison_policy=baseline exige baseline_year"))
		}
	default:
		errs = append(errs, fmt.Errorf("analysis.comparison_policy inválido: %q", a.ComparisonPolicy))
	}
	switch a.VariationMetric {
	case VariationCount, VariationRate:
	default:
		errs = append(errs, fmt.Errorf("analysis.variation_metric inválido: %q", a.VariationMetric))
	}
	switch a.TrendPolicy {
	case TrendEndpoints, TrendRegression:
	default:
		errs = append(errs, fmt.Errorf("analysis.trend_policy inválido: %q", a.TrendPolicy))
	}

	if len(errs) > 0 {
		return combineErrors(errs)
	}
	return nil
}

func combineErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}

	msg := "vários erros ao carregar a configuração:"
	for _, err := range errs {
		msg = fmt.Sprintf("%s\n- %v", msg, err)
	}
	return fmt.Errorf("%s", msg)
}

// merge 用文件中的非空项覆盖默认数据配置
func (dc *DataConfig) merge(o *DataConfig) {
	for k, v := range o.FlightData {
		dc.SetFlightData(k, v)
	}
	if len(o.DomesticPrefixes) > 0 {
		dc.DomesticPrefixes = make([]string, 0, len(o.DomesticPrefixes))
		for _, p := range o.DomesticPrefixes {
			dc.DomesticPrefixes = append(dc.DomesticPrefixes, strings.ToUpper(strings.TrimSpace(p)))
		}
	}
	if len(o.TimeLayouts) > 0 {
		dc.TimeLayouts = o.TimeLayouts
	}
	if o.SheetName != "" {
		dc.SheetName = o.SheetName
	}
}

func (dc *DataConfig) GetFlightData(colName string) string {
	return dc.FlightData[colName]
}

func (dc *DataConfig) SetFlightData(colName, value string) {
	if dc.FlightData == nil {
		dc.FlightData = make(map[string]string)
	}
	dc.FlightData[colName] = value
}
