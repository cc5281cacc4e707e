package logger

import (
	"context"
	"io"
	"os"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// Logger writes structured records through zerolog. Child loggers share the
// per-connector level overrides of their root.
type Logger struct {
	zl        zerolog.Logger
	service   string
	overrides map[string]zerolog.Level
}

// New builds a logger from cfg. Invalid levels fall back to info.
func New(cfg Config, service string) *Logger {
	cfg.ApplyDefaults()
	out := io.Writer(os.Stdout)
	if strings.EqualFold(cfg.Output, "stderr") {
		out = os.Stderr
	}
	if strings.EqualFold(cfg.Format, FormatConsole) {
		out = zerolog.ConsoleWriter{Out: out, NoColor: cfg.NoColor, TimeFormat: "15:04:05.000"}
	}

	level, err := parseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zc := zerolog.New(out).Level(level).With().Timestamp()
	if service != "" {
		zc = zc.Str("service", service)
	}
	if cfg.Caller {
		zc = zc.CallerWithSkipFrameCount(3)
	}

	l := &Logger{zl: zc.Logger(), service: service}
	for name, s := range cfg.Connectors {
		if lvl, err := parseLevel(s); err == nil {
			if l.overrides == nil {
				l.overrides = map[string]zerolog.Level{}
			}
			l.overrides[name] = lvl
		}
	}
	return l
}

// NewWithWriter returns a JSON logger at trace level writing to w.
func NewWithWriter(w io.Writer, service string) *Logger {
	return &Logger{
		zl:      zerolog.New(w).Level(zerolog.TraceLevel).With().Timestamp().Logger(),
		service: service,
	}
}

// NewNop returns a logger that discards everything.
func NewNop() *Logger { return &Logger{zl: zerolog.Nop()} }

func (l *Logger) derive(zl zerolog.Logger) *Logger {
	return &Logger{zl: zl, service: l.service, overrides: l.overrides}
}

// WithComponent tags records with a daemon component name.
func (l *Logger) WithComponent(name string) *Logger {
	return l.derive(l.zl.With().Str(FieldComponent, name).Logger())
}

// WithConnector tags records with a connector name and applies its level
// override, if one is configured.
func (l *Logger) WithConnector(name string) *Logger {
	zl := l.zl.With().Str(FieldConnector, name).Logger()
	if lvl, ok := l.overrides[name]; ok {
		zl = zl.Level(lvl)
	}
	return l.derive(zl)
}

// WithFields adds fields to every record.
func (l *Logger) WithFields(fields map[string]any) *Logger {
	return l.derive(l.zl.With().Fields(fields).Logger())
}

// WithError adds the error field to every record.
func (l *Logger) WithError(err error) *Logger {
	return l.derive(l.zl.With().Err(err).Logger())
}

func (l *Logger) write(level zerolog.Level, msg string, fields []map[string]any) {
	ev := l.zl.WithLevel(level)
	if ev == nil {
		return
	}
	for _, f := range fields {
		ev = ev.Fields(f)
	}
	ev.Msg(msg)
}

func (l *Logger) Debug(msg string, fields ...map[string]any) {
	l.write(zerolog.DebugLevel, msg, fields)
}
func (l *Logger) Info(msg string, fields ...map[string]any) { l.write(zerolog.InfoLevel, msg, fields) }
func (l *Logger) Warn(msg string, fields ...map[string]any) { l.write(zerolog.WarnLevel, msg, fields) }
func (l *Logger) Error(msg string, fields ...map[string]any) {
	l.write(zerolog.ErrorLevel, msg, fields)
}

type ctxKey int

const (
	requestIDKey ctxKey = iota
	activationKey
)

// ContextWithRequestID stores the HTTP request id for WithContext.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// ContextWithActivation stores the connector activation id for WithContext.
func ContextWithActivation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, activationKey, id)
}

// RequestIDFromContext returns the id stored by ContextWithRequestID.
func RequestIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(requestIDKey).(string)
	return v
}

// ActivationFromContext returns the id stored by ContextWithActivation.
func ActivationFromContext(ctx context.Context) string {
	v, _ := ctx.Value(activationKey).(string)
	return v
}

// WithContext adds the request and activation ids carried by ctx.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	zc := l.zl.With()
	if id := RequestIDFromContext(ctx); id != "" {
		zc = zc.Str(FieldRequestID, id)
	}
	if id := ActivationFromContext(ctx); id != "" {
		zc = zc.Str(FieldActivation, id)
	}
	return l.derive(zc.Logger())
}

var global atomic.Pointer[Logger]

// Init replaces the global logger with one built from cfg.
func Init(cfg Config) { SetGlobalLogger(New(cfg, cfg.ServiceName)) }

// SetGlobalLogger replaces the global logger.
func SetGlobalLogger(l *Logger) { global.Store(l) }

// GetGlobalLogger returns the global logger, a console logger at info
// until Init runs.
func GetGlobalLogger() *Logger {
	if l := global.Load(); l != nil {
		return l
	}
	global.CompareAndSwap(nil, New(Config{}, ""))
	return global.Load()
}

func Debug(msg string, fields ...map[string]any) { GetGlobalLogger().Debug(msg, fields...) }
func Info(msg string, fields ...map[string]any)  { GetGlobalLogger().Info(msg, fields...) }
func Warn(msg string, fields ...map[string]any)  { GetGlobalLogger().Warn(msg, fields...) }
func Error(msg string, fields ...map[string]any) { GetGlobalLogger().Error(msg, fields...) }

// WithComponent tags the global logger.
func WithComponent(name string) *Logger { return GetGlobalLogger().WithComponent(name) }
