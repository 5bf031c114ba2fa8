package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"VRADelays/src/config"
	"VRADelays/src/observability"
	"VRADelays/src/pipeline"
	"VRADelays/src/storage"
)

const usage = `uso: vra <comando> [opções] [arquivos...]

comandos:
  clean    filtra voos domésticos (Brasil-Brasil) e grava o resultado
  analyze  calcula a pontualidade e gera tabelas, gráficos e relatório
  run      executa clean e analyze em sequência

use "vra <comando> -h" para as opções de cada comando`

var errUsage = errors.New("comando inválido")

func main() {
	if err := run(os.Args[1:], os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		log.Fatal(err)
	}
}

// options 命令行参数;只有显式给出的参数才覆盖配置文件
type options struct {
	cmd         string
	configDir   string
	metricsFile string
	logLevel    string

	dataDir string
	year    int
	all     bool
	outDir  string
	format  string
	ndjson  bool
	gzip    bool
	files   []string

	input           string
	reportDir       string
	onTimeMin       int
	minSamples      int
	minCountAirline int
	topN            int
	topNAirline     int
	comparison      string
	baselineYear    int
	variation       string
	trend           string

	set map[string]bool
}

func run(args []string, stderr io.Writer) error {
	if len(args) == 0 {
		fmt.Fprintln(stderr, usage)
		return errUsage
	}
	cmd := args[0]
	switch cmd {
	case "clean", "analyze", "run":
	case "-h", "--help", "help":
		fmt.Fprintln(stderr, usage)
		return nil
	default:
		fmt.Fprintln(stderr, usage)
		return fmt.Errorf("%w: %q", errUsage, cmd)
	}

	opts, err := parseFlags(cmd, args[1:], stderr)
	if err != nil {
		return err
	}

	cfg, dcfg, err := config.LoadConfig(opts.configDir, "config.json", "dataconfig.json")
	if err != nil {
		return err
	}
	opts.apply(cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := storage.NewLogger(cfg.LogName, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("iniciar log: %w", err)
	}
	defer logger.Close()
	if err := logger.CheckRotate(cfg); err != nil {
		logger.Warning(fmt.Sprintf("rotação do log falhou: %v", err))
	}

	metrics := observability.NewMetrics()
	defer func() {
		if err := metrics.WriteTextfile(cfg.MetricsFile); err != nil {
			logger.Error(fmt.Sprintf("gravar métricas: %v", err))
		}
	}()

	p := pipeline.New(cfg, dcfg, logger, metrics, nil)
	cleanReq := pipeline.CleanRequest{
		DataDir: cfg.DataDir,
		Year:    opts.year,
		All:     opts.all,
		Files:   opts.files,
		OutDir:  cfg.OutDir,
	}

	switch cmd {
	case "clean":
		_, err = p.Clean(cleanReq)
		return err
	case "analyze":
		_, err = p.Analyze(pipeline.AnalyzeRequest{Input: opts.input, OutDir: cfg.ReportDir})
		return err
	default:
		sum, err := p.Clean(cleanReq)
		if err != nil {
			return err
		}
		_, err = p.Analyze(pipeline.AnalyzeRequest{Input: sum.Dir, OutDir: cfg.ReportDir})
		return err
	}
}

// parseFlags 每个子命令一个FlagSet;analyze 的 --out 指报告目录
func parseFlags(cmd string, args []string, stderr io.Writer) (*options, error) {
	o := &options{cmd: cmd, set: make(map[string]bool)}
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&o.configDir, "config-dir", "", "diretório com config.json e dataconfig.json (ou .yaml/.yml); padrão $VRA_CONFIG_DIR ou "+config.DefaultConfigDir)
	fs.StringVar(&o.metricsFile, "metrics-file", "", "grava as métricas no formato textfile do Prometheus")
	fs.StringVar(&o.logLevel, "log-level", "", "debug, info, warning ou error")

	if cmd == "clean" || cmd == "run" {
		fs.StringVar(&o.dataDir, "data-dir", "", "diretório dos arquivos VRA brutos")
		fs.IntVar(&o.year, "year", 0, "processa os arquivos VRA do ano")
		fs.BoolVar(&o.all, "all", false, "processa todos os arquivos VRA do diretório")
		fs.StringVar(&o.outDir, "out", "", "diretório de saída dos dados limpos")
		fs.StringVar(&o.format, "format", "", "csv, json ou both")
		fs.BoolVar(&o.ndjson, "ndjson", false, "grava JSON com um objeto por linha")
		fs.BoolVar(&o.gzip, "gzip", false, "comprime as saídas com gzip")
	}
	if cmd == "analyze" || cmd == "run" {
		if cmd == "analyze" {
			fs.StringVar(&o.input, "input", "", "arquivo ou diretório com os dados limpos")
			fs.StringVar(&o.reportDir, "out", "", "diretório do relatório")
		} else {
			fs.StringVar(&o.reportDir, "report-dir", "", "diretório do relatório")
		}
		fs.IntVar(&o.onTimeMin, "on-time-min", 0, "atraso máximo em minutos considerado pontual")
		fs.IntVar(&o.minSamples, "min-samples", 0, "mínimo de voos para ranquear por taxa")
		fs.IntVar(&o.minCountAirline, "min-count-airline", 0, "mínimo de voos por companhia")
		fs.IntVar(&o.topN, "top-n", 0, "quantidade de aeroportos nos rankings")
		fs.IntVar(&o.topNAirline, "top-n-airline", 0, "quantidade de companhias nos rankings")
		fs.StringVar(&o.comparison, "comparison", "", "extremes, consecutive ou baseline")
		fs.IntVar(&o.baselineYear, "baseline-year", 0, "ano base para --comparison=baseline")
		fs.StringVar(&o.variation, "variation-metric", "", "count ou rate")
		fs.StringVar(&o.trend, "trend", "", "endpoints ou regression")
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	fs.Visit(func(f *flag.Flag) { o.set[f.Name] = true })
	o.files = fs.Args()

	if cmd == "analyze" {
		if len(o.files) > 0 {
			return nil, fmt.Errorf("%w: argumentos inesperados: %s", errUsage, strings.Join(o.files, " "))
		}
		if o.input == "" {
			fs.Usage()
			return nil, fmt.Errorf("%w: --input é obrigatório", errUsage)
		}
	}
	if o.year < 0 {
		return nil, fmt.Errorf("%w: --year inválido: %d", errUsage, o.year)
	}
	return o, nil
}

// apply 用显式给出的参数覆盖配置
func (o *options) apply(cfg *config.Config) {
	if o.set["metrics-file"] {
		cfg.MetricsFile = o.metricsFile
	}
	if o.set["log-level"] {
		cfg.LogLevel = o.logLevel
	}

	if o.set["data-dir"] {
		cfg.DataDir = o.dataDir
	}
	if o.set["out"] && o.cmd != "analyze" {
		cfg.OutDir = o.outDir
	}
	if o.set["format"] {
		cfg.Clean.Format = o.format
	}
	if o.set["ndjson"] {
		cfg.Clean.NDJSON = o.ndjson
	}
	if o.set["gzip"] {
		cfg.Clean.Gzip = o.gzip
	}

	if o.set["report-dir"] || (o.set["out"] && o.cmd == "analyze") {
		cfg.ReportDir = o.reportDir
	}
	a := &cfg.Analysis
	if o.set["on-time-min"] {
		a.OnTimeMin = o.onTimeMin
	}
	if o.set["min-samples"] {
		a.MinSamples = o.minSamples
	}
	if o.set["min-count-airline"] {
		a.MinCountAirline = o.minCountAirline
	}
	if o.set["top-n"] {
		a.TopN = o.topN
	}
	if o.set["top-n-airline"] {
		a.TopNAirline = o.topNAirline
	}
	if o.set["comparison"] {
		a.ComparisonPolicy = o.comparison
	}
	if o.set["baseline-year"] {
		a.BaselineYear = o.baselineYear
	}
	if o.set["variation-metric"] {
		a.VariationMetric = o.variation
	}
	if o.set["trend"] {
		a.TrendPolicy = o.trend
	}
}
