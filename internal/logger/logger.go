package logger

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/wfunc/feudal-economy/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	root    *zap.Logger
	once    sync.Once
	mu      sync.RWMutex
	modules = map[string]*zap.Logger{}

	// 未初始化时使用的日志器
	fallback = zap.NewNop()

	// 全局日志级别，支持运行时调整
	atomicLevel = zap.NewAtomicLevel()
)

// sinks 一次初始化打开的输出目标
type sinks struct {
	outputs []zapcore.WriteSyncer
	errors  zapcore.WriteSyncer
}

// Init 初始化日志系统，只生效一次
func Init(cfg *config.LogConfig) error {
	var err error
	once.Do(func() {
		atomicLevel.SetLevel(parseLevel(cfg.Level))

		var out sinks
		out, err = openSinks(cfg)
		if err != nil {
			return
		}
		encoder := newEncoder(cfg.Format)

		cores := make([]zapcore.Core, 0, len(out.outputs)+1)
		for _, ws := range out.outputs {
			cores = append(cores, zapcore.NewCore(encoder, ws, atomicLevel))
		}
		if out.errors != nil {
			cores = append(cores, zapcore.NewCore(encoder, out.errors, zapcore.ErrorLevel))
		}

		mu.Lock()
		defer mu.Unlock()
		root = zap.New(zapcore.NewTee(cores...),
			zap.AddCaller(),
			zap.AddCallerSkip(1),
			zap.AddStacktrace(zapcore.ErrorLevel),
		)

		// 模块日志器写入相同目标，但使用独立级别
		for module, level := range cfg.Modules {
			lvl := parseLevel(level)
			moduleCores := make([]zapcore.Core, 0, len(out.outputs))
			for _, ws := range out.outputs {
				moduleCores = append(moduleCores, zapcore.NewCore(encoder, ws, lvl))
			}
			modules[module] = zap.New(zapcore.NewTee(moduleCores...), zap.AddCaller()).Named(module)
		}
	})
	return err
}

// newEncoder json或带颜色的控制台格式
func newEncoder(format string) zapcore.Encoder {
	ec := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	if format == "json" {
		return zapcore.NewJSONEncoder(ec)
	}
	ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return zapcore.NewConsoleEncoder(ec)
}

// openSinks 按output打开标准输出与轮转文件
func openSinks(cfg *config.LogConfig) (sinks, error) {
	var out sinks
	if cfg.Output == "stdout" || cfg.Output == "both" {
		out.outputs = append(out.outputs, zapcore.AddSync(os.Stdout))
	}
	if cfg.Output != "file" && cfg.Output != "both" {
		return out, nil
	}

	if err := os.MkdirAll(cfg.File.Path, 0755); err != nil {
		return out, err
	}
	rotate := func(name string) zapcore.WriteSyncer {
		return zapcore.AddSync(&lumberjack.Logger{
			Filename:   filepath.Join(cfg.File.Path, name),
			MaxSize:    cfg.File.MaxSize, // MB
			MaxAge:     cfg.File.MaxAge,  // days
			MaxBackups: cfg.File.MaxBackups,
			Compress:   cfg.File.Compress,
		})
	}
	out.outputs = append(out.outputs, rotate(cfg.File.Filename))
	out.errors = rotate("error.log")
	return out, nil
}

// parseLevel 解析日志级别，未知值按info处理
func parseLevel(levelStr string) zapcore.Level {
	switch levelStr {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "fatal":
		return zapcore.FatalLevel
	}
	return zapcore.InfoLevel
}

// GetLogger 获取日志器
func GetLogger() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	if root == nil {
		return fallback
	}
	return root
}

// GetModuleLogger 获取模块日志器，未配置的模块返回全局日志器
func GetModuleLogger(module string) *zap.Logger {
	mu.RLock()
	l, ok := modules[module]
	mu.RUnlock()
	if ok {
		return l
	}
	return GetLogger()
}

// Sync 同步日志缓冲区
func Sync() error {
	mu.RLock()
	defer mu.RUnlock()
	if root == nil {
		return nil
	}
	return root.Sync()
}

// SetLevel 动态设置全局日志级别
func SetLevel(levelStr string) {
	atomicLevel.SetLevel(parseLevel(levelStr))
}

func Debug(msg string, fields ...zap.Field) { GetLogger().Debug(msg, fields...) }
func Info(msg string, fields ...zap.Field)  { GetLogger().Info(msg, fields...) }
func Warn(msg string, fields ...zap.Field)  { GetLogger().Warn(msg, fields...) }
func Error(msg string, fields ...zap.Field) { GetLogger().Error(msg, fields...) }

// Fatal 输出致命错误日志并退出程序
func Fatal(msg string, fields ...zap.Field) { GetLogger().Fatal(msg, fields...) }

// LogRequest 记录请求日志
func LogRequest(method, path string, statusCode int, latency time.Duration, clientIP string) {
	GetModuleLogger("http").Info("request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", statusCode),
		zap.Duration("latency", latency),
		zap.String("client_ip", clientIP),
	)
}

// LogPanic 记录恢复的panic及其堆栈
func LogPanic(where string, recovered interface{}, stack []byte) {
	GetLogger().Error("panic recovered",
		zap.String("where", where),
		zap.Any("panic", recovered),
		zap.ByteString("stack", stack),
	)
}

// LogTaxEvent 记录税务事件
func LogTaxEvent(event string, subject string, familyID uint, amount int, fields ...zap.Field) {
	fields = append([]zap.Field{
		zap.String("event", event),
		zap.String("subject", subject),
		zap.Uint("family_id", familyID),
		zap.Int("amount", amount),
	}, fields...)
	GetModuleLogger("tax").Info("tax_event", fields...)
}

// LogGuardEvent 记录守卫事件
func LogGuardEvent(event string, guardID int64, intruder string, fields ...zap.Field) {
	fields = append([]zap.Field{
		zap.String("event", event),
		zap.Int64("guard_id", guardID),
		zap.String("intruder", intruder),
	}, fields...)
	GetModuleLogger("guard").Debug("guard_event", fields...)
}

// LogWebSocketMessage 记录通知通道消息，direction 为 send 或 receive
func LogWebSocketMessage(direction, identity, messageType string) {
	GetModuleLogger("websocket").Debug("ws_message",
		zap.String("direction", direction),
		zap.String("identity", identity),
		zap.String("type", messageType),
	)
}

// LogDatabaseOperation 记录数据库维护操作
func LogDatabaseOperation(operation string, table string, duration time.Duration, err error) {
	l := GetModuleLogger("database")
	fields := []zap.Field{
		zap.String("operation", operation),
		zap.String("table", table),
		zap.Duration("duration", duration),
	}
	if err != nil {
		l.Error("database_operation_failed", append(fields, zap.Error(err))...)
		return
	}
	l.Debug("database_operation", fields...)
}
