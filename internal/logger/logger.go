package logger

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the logging facade used across the service. It wraps a zap
// sugared logger so call sites stay terse.
type Logger interface {
	Debug(args ...interface{})
	Debugf(template string, args ...interface{})
	Info(args ...interface{})
	Infof(template string, args ...interface{})
	Warn(args ...interface{})
	Warnf(template string, args ...interface{})
	Error(args ...interface{})
	Errorf(template string, args ...interface{})
	Fatal(args ...interface{})
	Fatalf(template string, args ...interface{})
	Logger() *zap.Logger
	Sync() error
}

type appLogger struct {
	base  *zap.Logger
	sugar *zap.SugaredLogger
}

type Config struct {
	Level      string
	AnsiColors bool
	// LogDir enables the daily file sink when non-empty.
	LogDir string
	// MaxLogFiles caps retained daily files; 0 disables pruning.
	MaxLogFiles int
}

var levelMap = map[string]zapcore.Level{
	"debug": zapcore.DebugLevel,
	"info":  zapcore.InfoLevel,
	"warn":  zapcore.WarnLevel,
	"error": zapcore.ErrorLevel,
}

func New(cfg Config) (Logger, error) {
	level, ok := levelMap[strings.ToLower(cfg.Level)]
	if !ok {
		level = zapcore.InfoLevel
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	if cfg.AnsiColors {
		encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		encoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	}

	cores := []zapcore.Core{
		zapcore.NewCore(
			zapcore.NewConsoleEncoder(encoderCfg),
			zapcore.Lock(os.Stdout),
			level,
		),
	}

	if cfg.LogDir != "" {
		fileCore, err := newDailyFileCore(cfg.LogDir, cfg.MaxLogFiles, level)
		if err != nil {
			return nil, err
		}
		cores = append(cores, fileCore)
	}

	base := zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(1))
	return &appLogger{base: base, sugar: base.Sugar()}, nil
}

func newDailyFileCore(dir string, maxFiles int, level zapcore.Level) (zapcore.Core, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	pruneOldLogs(dir, maxFiles)

	name := filepath.Join(dir, "server."+time.Now().UTC().Format("2006-01-02"))
	f, err := os.OpenFile(name, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}

	fileEncoderCfg := zap.NewProductionEncoderConfig()
	fileEncoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	return zapcore.NewCore(zapcore.NewJSONEncoder(fileEncoderCfg), zapcore.AddSync(f), level), nil
}

func pruneOldLogs(dir string, maxFiles int) {
	if maxFiles <= 0 {
		return
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	var logs []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), "server.") {
			logs = append(logs, e.Name())
		}
	}
	if len(logs) < maxFiles {
		return
	}
	sort.Strings(logs)
	for _, name := range logs[:len(logs)-maxFiles+1] {
		_ = os.Remove(filepath.Join(dir, name))
	}
}

func (l *appLogger) Debug(args ...interface{})              { l.sugar.Debug(args...) }
func (l *appLogger) Debugf(tpl string, args ...interface{}) { l.sugar.Debugf(tpl, args...) }
func (l *appLogger) Info(args ...interface{})               { l.sugar.Info(args...) }
func (l *appLogger) Infof(tpl string, args ...interface{})  { l.sugar.Infof(tpl, args...) }
func (l *appLogger) Warn(args ...interface{})               { l.sugar.Warn(args...) }
func (l *appLogger) Warnf(tpl string, args ...interface{})  { l.sugar.Warnf(tpl, args...) }
func (l *appLogger) Error(args ...interface{})              { l.sugar.Error(args...) }
func (l *appLogger) Errorf(tpl string, args ...interface{}) { l.sugar.Errorf(tpl, args...) }
func (l *appLogger) Fatal(args ...interface{})              { l.sugar.Fatal(args...) }
func (l *appLogger) Fatalf(tpl string, args ...interface{}) { l.sugar.Fatalf(tpl, args...) }
func (l *appLogger) Logger() *zap.Logger                    { return l.base }
func (l *appLogger) Sync() error                            { return l.base.Sync() }
