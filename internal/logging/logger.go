// Package logging provides config-driven categorized logging for devhelper.
// Every category is a named child of one zap logger; output goes to stderr and,
// when a file is configured, to a size-rotated log file.
package logging

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot    Category = "boot"    // Startup, config, shutdown
	CategoryAPI     Category = "api"     // LLM API calls
	CategoryHTTP    Category = "http"    // Inbound HTTP requests
	CategoryTracker Category = "tracker" // Issue tracker (Jira) calls
	CategorySCM     Category = "scm"     // Source control (GitHub) calls
	CategoryBrowser Category = "browser" // Browser automation
	CategoryQA      Category = "qa"      // QA runs: parsing, execution, reports
	CategoryReview  Category = "review"  // PR analysis
	CategoryTicket  Category = "ticket"  // Ticket drafting and creation
	CategoryChat    Category = "chat"    // Chat assistant sessions
)

// Config mirrors config.LoggingConfig to avoid an import cycle.
type Config struct {
	Level      string
	Format     string // console, json
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Categories map[string]bool
}

// Logger is a printf-style logger bound to one category.
type Logger struct {
	category Category
	sugar    *zap.SugaredLogger
}

var (
	mu         sync.RWMutex
	root       = zap.NewNop()
	categories map[string]bool
	loggers    = make(map[Category]*Logger)
)

// Initialize builds the root logger from cfg. Safe to call more than once;
// the last call wins.
func Initialize(cfg Config) error {
	level, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(orDefault(cfg.Level, "info"))))
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	switch strings.ToLower(cfg.Format) {
	case "json":
		encoder = zapcore.NewJSONEncoder(encCfg)
	case "", "console", "text":
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encCfg)
	default:
		return fmt.Errorf("invalid log format %q (valid: console, json)", cfg.Format)
	}

	cores := []zapcore.Core{
		zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), level),
	}
	if cfg.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    orDefaultInt(cfg.MaxSizeMB, 50),
			MaxBackups: orDefaultInt(cfg.MaxBackups, 5),
			MaxAge:     orDefaultInt(cfg.MaxAgeDays, 14),
			Compress:   true,
		}
		// Files always get JSON so they can be shipped as-is.
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), zapcore.AddSync(rotator), level))
	}

	SetRoot(newRoot(zapcore.NewTee(cores...)), cfg.Categories)
	return nil
}

// newRoot skips one frame: Logger methods and the category helpers both call
// the sugared logger directly.
func newRoot(core zapcore.Core) *zap.Logger {
	return zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))
}

// SetRoot replaces the root logger. Tests use it with zaptest/observer loggers.
func SetRoot(l *zap.Logger, enabled map[string]bool) {
	mu.Lock()
	defer mu.Unlock()
	if l == nil {
		l = zap.NewNop()
	}
	root = l
	categories = enabled
	loggers = make(map[Category]*Logger)
}

// L returns the root zap logger for callers that want structured fields.
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return root
}

// Sync flushes buffered entries.
func Sync() {
	_ = L().Sync()
}

// IsCategoryEnabled returns whether a specific category is enabled.
// Categories missing from the filter are enabled.
func IsCategoryEnabled(category Category) bool {
	mu.RLock()
	defer mu.RUnlock()
	if categories == nil {
		return true
	}
	enabled, ok := categories[string(category)]
	return !ok || enabled
}

// Get returns (or creates) a logger for the given category.
// Disabled categories get a no-op logger.
func Get(category Category) *Logger {
	mu.RLock()
	if l, ok := loggers[category]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	enabled := IsCategoryEnabled(category)

	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[category]; ok {
		return l
	}
	base := zap.NewNop()
	if enabled {
		base = root.Named(string(category))
	}
	l := &Logger{category: category, sugar: base.Sugar()}
	loggers[category] = l
	return l
}

// With returns a child logger carrying structured key/value pairs.
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{category: l.category, sugar: l.sugar.With(keysAndValues...)}
}

func (l *Logger) Debug(format string, args ...interface{}) { l.sugar.Debugf(format, args...) }
func (l *Logger) Info(format string, args ...interface{})  { l.sugar.Infof(format, args...) }
func (l *Logger) Warn(format string, args ...interface{})  { l.sugar.Warnf(format, args...) }
func (l *Logger) Error(format string, args ...interface{}) { l.sugar.Errorf(format, args...) }

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func orDefaultInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// =============================================================================
// Category helpers
// =============================================================================

func Boot(format string, args ...interface{})      { Get(CategoryBoot).sugar.Infof(format, args...) }
func BootWarn(format string, args ...interface{})  { Get(CategoryBoot).sugar.Warnf(format, args...) }
func BootError(format string, args ...interface{}) { Get(CategoryBoot).sugar.Errorf(format, args...) }

func API(format string, args ...interface{})      { Get(CategoryAPI).sugar.Infof(format, args...) }
func APIDebug(format string, args ...interface{}) { Get(CategoryAPI).sugar.Debugf(format, args...) }
func APIError(format string, args ...interface{}) { Get(CategoryAPI).sugar.Errorf(format, args...) }

func Tracker(format string, args ...interface{})      { Get(CategoryTracker).sugar.Infof(format, args...) }
func TrackerDebug(format string, args ...interface{}) { Get(CategoryTracker).sugar.Debugf(format, args...) }
func TrackerWarn(format string, args ...interface{})  { Get(CategoryTracker).sugar.Warnf(format, args...) }

func SCM(format string, args ...interface{})      { Get(CategorySCM).sugar.Infof(format, args...) }
func SCMDebug(format string, args ...interface{}) { Get(CategorySCM).sugar.Debugf(format, args...) }

func Browser(format string, args ...interface{})      { Get(CategoryBrowser).sugar.Infof(format, args...) }
func BrowserDebug(format string, args ...interface{}) { Get(CategoryBrowser).sugar.Debugf(format, args...) }
func BrowserWarn(format string, args ...interface{})  { Get(CategoryBrowser).sugar.Warnf(format, args...) }

func QA(format string, args ...interface{})      { Get(CategoryQA).sugar.Infof(format, args...) }
func QADebug(format string, args ...interface{}) { Get(CategoryQA).sugar.Debugf(format, args...) }
func QAWarn(format string, args ...interface{})  { Get(CategoryQA).sugar.Warnf(format, args...) }

func Review(format string, args ...interface{})      { Get(CategoryReview).sugar.Infof(format, args...) }
func ReviewDebug(format string, args ...interface{}) { Get(CategoryReview).sugar.Debugf(format, args...) }

func Ticket(format string, args ...interface{})      { Get(CategoryTicket).sugar.Infof(format, args...) }
func TicketDebug(format string, args ...interface{}) { Get(CategoryTicket).sugar.Debugf(format, args...) }

func Chat(format string, args ...interface{})      { Get(CategoryChat).sugar.Infof(format, args...) }
func ChatDebug(format string, args ...interface{}) { Get(CategoryChat).sugar.Debugf(format, args...) }
