package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"
	"time"
)

// LogLevel 日志级别
type LogLevel int32

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
	// OFF 关闭全部输出
	OFF
)

var levelNames = map[LogLevel]string{
	DEBUG: "DEBUG",
	INFO:  "INFO",
	WARN:  "WARN",
	ERROR: "ERROR",
	OFF:   "OFF",
}

// Logger 日志接口
type Logger interface {
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Error(format string, args ...interface{})
	SetLevel(level LogLevel)
	GetLevel() LogLevel
}

// loggerImpl 日志实现
// 级别使用原子变量，允许在并发查询过程中调整
type loggerImpl struct {
	level  atomic.Int32
	logger *log.Logger
	closer io.Closer
}

var defaultLogger atomic.Pointer[Logger]

// InitLogger 初始化日志系统，并设置为默认日志实例；config 为空时使用 DefaultConfig
func InitLogger(config *Config) (Logger, error) {
	if config == nil {
		config = DefaultConfig()
	}
	var writers []io.Writer

	// 控制台输出
	if config.EnableConsole {
		writers = append(writers, os.Stderr)
	}

	// 文件输出
	var file *os.File
	if config.EnableFile {
		logDir := config.LogDir
		if logDir == "" {
			logDir = "logs"
		}

		if err := os.MkdirAll(logDir, 0755); err != nil {
			return nil, fmt.Errorf("创建日志目录失败: %w", err)
		}

		var logFile string
		if config.LogFile != "" {
			logFile = filepath.Join(logDir, config.LogFile)
		} else {
			logFile = filepath.Join(logDir, fmt.Sprintf("gpuhunt-%s.log", time.Now().Format("2006-01-02")))
		}

		// 追加模式
		var err error
		file, err = os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("打开日志文件失败: %w", err)
		}
		writers = append(writers, file)
	}

	l := newLogger(io.MultiWriter(writers...), config.Level)
	if file != nil {
		l.closer = file
	}

	var iface Logger = l
	defaultLogger.Store(&iface)
	return l, nil
}

// New 创建写入 w 的日志实例，不影响默认日志
func New(w io.Writer, level LogLevel) Logger {
	return newLogger(w, level)
}

// Nop 返回丢弃所有输出的日志实例
func Nop() Logger {
	return newLogger(io.Discard, OFF)
}

func newLogger(w io.Writer, level LogLevel) *loggerImpl {
	l := &loggerImpl{logger: log.New(w, "", 0)}
	l.level.Store(int32(level))
	return l
}

// GetLogger 获取默认日志实例
func GetLogger() Logger {
	if l := defaultLogger.Load(); l != nil {
		return *l
	}
	// 未初始化时使用控制台日志
	return New(os.Stderr, INFO)
}

// Close 关闭日志文件（如果有）
func Close(l Logger) error {
	if impl, ok := l.(*loggerImpl); ok && impl.closer != nil {
		return impl.closer.Close()
	}
	return nil
}

// SetLevel 设置日志级别
func (l *loggerImpl) SetLevel(level LogLevel) {
	l.level.Store(int32(level))
}

// GetLevel 获取日志级别
func (l *loggerImpl) GetLevel() LogLevel {
	return LogLevel(l.level.Load())
}

// log 内部日志方法
func (l *loggerImpl) log(level LogLevel, format string, args ...interface{}) {
	if level < l.GetLevel() {
		return
	}

	// 调用者信息，只保留文件名
	_, file, line, ok := runtime.Caller(2)
	if !ok {
		file = "unknown"
		line = 0
	} else {
		file = filepath.Base(file)
	}

	message := fmt.Sprintf(format, args...)
	timestamp := time.Now().Format("2006-01-02 15:04:05.000")
	l.logger.Printf("[%s] [%s] [%s:%d] %s", timestamp, levelNames[level], file, line, message)
}

// Debug 调试日志
func (l *loggerImpl) Debug(format string, args ...interface{}) {
	l.log(DEBUG, format, args...)
}

// Info 信息日志
func (l *loggerImpl) Info(format string, args ...interface{}) {
	l.log(INFO, format, args...)
}

// Warn 警告日志
func (l *loggerImpl) Warn(format string, args ...interface{}) {
	l.log(WARN, format, args...)
}

// Error 错误日志
func (l *loggerImpl) Error(format string, args ...interface{}) {
	l.log(ERROR, format, args...)
}

// ParseLevel 解析日志级别字符串，无法识别时返回 INFO
func ParseLevel(levelStr string) LogLevel {
	switch strings.ToUpper(strings.TrimSpace(levelStr)) {
	case "DEBUG":
		return DEBUG
	case "INFO":
		return INFO
	case "WARN", "WARNING":
		return WARN
	case "ERROR":
		return ERROR
	case "OFF", "NONE":
		return OFF
	default:
		return INFO
	}
}

// String 返回日志级别的字符串表示
func (l LogLevel) String() string {
	return levelNames[l]
}
