package storage

import (
	"VRADelays/src/config"
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// LogLevel 定义日志级别类型
type LogLevel int

// 日志级别常量定义
const (
	DEBUG   LogLevel = iota // 调试信息
	INFO                    // 普通信息
	WARNING                 // 警告信息
	ERROR                   // 错误信息
	FATAL                   // 致命错误
)

// Logger 日志记录器结构体
type Logger struct {
	entry    *logrus.Logger
	file     *os.File   // 日志文件句柄,为nil时只写控制台
	filename string     // 轮转时使用
	console  io.Writer  // 控制台输出
	mu       sync.Mutex // 互斥锁，保证并发安全
}

// fatalField FATAL按ErrorLevel记录,标签由该字段决定
const fatalField = "fatal"

// lineFormatter 输出 [时间] 级别: 消息
type lineFormatter struct{}

func (lineFormatter) Format(e *logrus.Entry) ([]byte, error) {
	name := levelName(e.Level)
	if _, ok := e.Data[fatalField]; ok {
		name = FATAL.String()
	}
	var b bytes.Buffer
	fmt.Fprintf(&b, "[%s] %s: %s\n",
		e.Time.Format("2006-01-02 15:04:05"),
		name,
		e.Message)
	return b.Bytes(), nil
}

// NewLogger 创建新的日志记录器
// 参数:
//
//	filename: 日志文件路径,为空时只输出到控制台
//	level: debug/info/warning/error
//
// 返回值:
//
//	*Logger: 日志记录器实例
//	error: 创建过程中的错误
func NewLogger(filename, level string) (*Logger, error) {
	return newLogger(filename, level, os.Stdout)
}

func newLogger(filename, level string, console io.Writer) (*Logger, error) {
	l := &Logger{
		entry:    logrus.New(),
		filename: filename,
		console:  console,
	}
	l.entry.SetFormatter(lineFormatter{})
	l.entry.SetLevel(ParseLevel(level).logrus())

	if filename != "" {
		// 打开或创建日志文件，权限设置为0644
		file, err := os.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, err
		}
		l.file = file
	}
	l.resetOutput()
	return l, nil
}

func (l *Logger) resetOutput() {
	if l.file != nil {
		l.entry.SetOutput(io.MultiWriter(l.console, l.file))
		return
	}
	l.entry.SetOutput(l.console)
}

// Close 关闭日志文件
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		l.resetOutput()
		return err
	}
	return nil
}

// Log 记录日志方法
// 参数:
//
//	level: 日志级别
//	message: 日志消息内容
func (l *Logger) Log(level LogLevel, message string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	// FATAL 只记录,退出由调用方决定
	if level == FATAL {
		l.entry.WithField(fatalField, true).Log(level.logrus(), message)
		return
	}
	l.entry.Log(level.logrus(), message)
}

// CheckRotate 日志文件超过 log_max_size 时轮转
func (l *Logger) CheckRotate(cfg *config.Config) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	info, err := l.file.Stat()
	if err != nil {
		return fmt.Errorf("ler informações do arquivo de log: %w", err)
	}

	limit := eval(cfg.LogMaxSize)
	if limit <= 0 || info.Size() <= limit {
		return nil
	}
	return l.rotateLog()
}

func (l *Logger) rotateLog() error {
	_ = l.file.Close()

	ext := ""
	base := l.filename
	if i := strings.LastIndex(base, "."); i > 0 {
		base, ext = base[:i], base[i:]
	}
	rotated := fmt.Sprintf("%s.%s%s", base, time.Now().Format("20060102150405"), ext)
	if err := os.Rename(l.filename, rotated); err != nil {
		return fmt.Errorf("rotação do log: %w", err)
	}

	file, err := os.OpenFile(l.filename, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		l.file = nil
		l.resetOutput()
		return err
	}
	l.file = file
	l.resetOutput()
	return nil
}

// ParseLevel 解析配置中的级别名称,无法识别时为INFO
func ParseLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DEBUG
	case "warning", "warn":
		return WARNING
	case "error":
		return ERROR
	case "fatal":
		return FATAL
	default:
		return INFO
	}
}

func (l LogLevel) logrus() logrus.Level {
	switch l {
	case DEBUG:
		return logrus.DebugLevel
	case WARNING:
		return logrus.WarnLevel
	case ERROR:
		return logrus.ErrorLevel
	case FATAL:
		// logrus.FatalLevel 会调用 os.Exit
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

func levelName(l logrus.Level) string {
	switch l {
	case logrus.DebugLevel, logrus.TraceLevel:
		return DEBUG.String()
	case logrus.WarnLevel:
		return WARNING.String()
	case logrus.ErrorLevel:
		return ERROR.String()
	case logrus.FatalLevel, logrus.PanicLevel:
		return FATAL.String()
	default:
		return INFO.String()
	}
}

// String 实现LogLevel的String方法
func (l LogLevel) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARNING:
		return "WARNING"
	case ERROR:
		return "ERROR"
	case FATAL:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// eval 计算 "10 * 1024 * 1024" 这样的乘法表达式,无法解析时返回0
func eval(expr string) int64 {
	parts := strings.Split(expr, "*")
	var result int64 = 1
	for _, part := range parts {
		num, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return 0
		}
		result *= num
	}
	return result
}

// 以下是快捷日志方法
func (l *Logger) Debug(msg string)   { l.Log(DEBUG, msg) }   // 记录调试信息
func (l *Logger) Info(msg string)    { l.Log(INFO, msg) }    // 记录普通信息
func (l *Logger) Warning(msg string) { l.Log(WARNING, msg) } // 记录警告信息
func (l *Logger) Error(msg string)   { l.Log(ERROR, msg) }   // 记录错误信息
func (l *Logger) Fatal(msg string)   { l.Log(FATAL, msg) }   // 记录致命错误
