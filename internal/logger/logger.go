package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	apptrace "stock-analyst/internal/trace"
)

var (
	mu              sync.RWMutex
	globalLogger    = slog.New(slog.NewTextHandler(io.Discard, nil))
	logLevel        slog.Level
	detailedLogging bool
)

// LogConfig holds logging configuration
type LogConfig struct {
	Level           string // DEBUG, INFO, WARN, ERROR
	Format          string // json or text
	DetailedLogging bool   // debug lines plus caller source
	TracingEnabled  bool
	Output          io.Writer
}

// Init initializes the global logger and tracer from environment variables
func Init() error {
	return InitWithConfig(LoadConfigFromEnv())
}

// LoadConfigFromEnv loads logging configuration from environment variables
func LoadConfigFromEnv() LogConfig {
	return LogConfig{
		Level:           getEnvOrDefault("LOG_LEVEL", "INFO"),
		Format:          getEnvOrDefault("LOG_FORMAT", "json"),
		DetailedLogging: getEnvOrDefault("LOG_DETAILED", "false") == "true",
		TracingEnabled:  getEnvOrDefault("LOG_TRACING_ENABLED", "true") == "true",
	}
}

// InitWithConfig initializes the logger and tracer with specific configuration
func InitWithConfig(config LogConfig) error {
	out := config.Output
	if out == nil {
		out = os.Stdout
	}

	level := parseLogLevel(config.Level)
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.EqualFold(config.Format, "text") {
		handler = slog.NewTextHandler(out, opts)
	} else {
		handler = slog.NewJSONHandler(out, opts)
	}

	l := slog.New(handler).With("service", apptrace.ServiceName)

	mu.Lock()
	globalLogger = l
	logLevel = level
	detailedLogging = config.DetailedLogging || level == slog.LevelDebug
	mu.Unlock()
	slog.SetDefault(l)

	if err := apptrace.InitWithEnabled(config.TracingEnabled); err != nil {
		l.Warn("Failed to initialize OpenTelemetry tracer, tracing disabled", "error", err)
	}
	return nil
}

// Shutdown flushes pending spans
func Shutdown(ctx context.Context) error {
	return apptrace.Shutdown(ctx)
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getTraceAttrs(ctx context.Context) []any {
	traceID, spanID, ok := apptrace.GetTraceFields(ctx)
	if !ok {
		return nil
	}
	return []any{"trace_id", traceID, "span_id", spanID}
}

func Debug(ctx context.Context, msg string, args ...any) {
	DebugSkip(ctx, 1, msg, args...)
}

func Info(ctx context.Context, msg string, args ...any) {
	InfoSkip(ctx, 1, msg, args...)
}

func Warn(ctx context.Context, msg string, args ...any) {
	logWithTrace(ctx, slog.LevelWarn, msg, 2, args...)
}

func Error(ctx context.Context, msg string, args ...any) {
	ErrorSkip(ctx, 1, msg, args...)
}

// ErrorWithErr logs err and marks the current span as failed
func ErrorWithErr(ctx context.Context, msg string, err error, args ...any) {
	ErrorWithErrSkip(ctx, 1, msg, err, args...)
}

// DebugSkip logs at debug level reporting the caller skip frames above the direct caller.
// Decorators pass 1 so the source points at the code they wrap.
func DebugSkip(ctx context.Context, skip int, msg string, args ...any) {
	if !IsDebugEnabled() {
		return
	}
	logWithTrace(ctx, slog.LevelDebug, msg, 2+skip, args...)
}

func InfoSkip(ctx context.Context, skip int, msg string, args ...any) {
	logWithTrace(ctx, slog.LevelInfo, msg, 2+skip, args...)
}

func ErrorSkip(ctx context.Context, skip int, msg string, args ...any) {
	logWithTrace(ctx, slog.LevelError, msg, 2+skip, args...)
}

func ErrorWithErrSkip(ctx context.Context, skip int, msg string, err error, args ...any) {
	if err != nil && apptrace.Enabled() {
		span := trace.SpanFromContext(ctx)
		if span.SpanContext().IsValid() {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}
	allArgs := append([]any{"error", err}, args...)
	logWithTrace(ctx, slog.LevelError, msg, 2+skip, allArgs...)
}

// logWithTrace writes one record with trace IDs and, in detailed mode, the caller at depth skip.
func logWithTrace(ctx context.Context, level slog.Level, msg string, skip int, args ...any) {
	if ctx == nil {
		ctx = context.Background()
	}
	if traceAttrs := getTraceAttrs(ctx); traceAttrs != nil {
		args = append(traceAttrs, args...)
	}

	mu.RLock()
	l, detailed := globalLogger, detailedLogging
	mu.RUnlock()

	if detailed {
		if pc, file, line, ok := runtime.Caller(skip); ok {
			if fn := runtime.FuncForPC(pc); fn != nil {
				args = append(args, "source", slog.GroupValue(
					slog.String("function", fn.Name()),
					slog.String("file", file),
					slog.Int("line", line),
				))
			}
		}
	}

	l.Log(ctx, level, msg, args...)
}

// OperationTimer measures an operation inside its own span
type OperationTimer struct {
	ctx    context.Context
	span   trace.Span
	start  time.Time
	fields []any
}

// StartOperation opens a span named operation and records fields as attributes
func StartOperation(ctx context.Context, operation string, fields ...any) *OperationTimer {
	ctx, span := apptrace.StartSpan(ctx, operation)
	span.SetAttributes(apptrace.Attributes(fields...)...)

	DebugSkip(ctx, 1, "Operation started", append([]any{"operation", operation}, fields...)...)

	return &OperationTimer{
		ctx:    ctx,
		span:   span,
		start:  time.Now(),
		fields: append([]any{"operation", operation}, fields...),
	}
}

// End closes the span successfully
func (ot *OperationTimer) End(additionalFields ...any) time.Duration {
	duration := time.Since(ot.start)

	ot.span.SetAttributes(attribute.Int64("duration_ms", duration.Milliseconds()))
	ot.span.SetAttributes(apptrace.Attributes(additionalFields...)...)
	ot.span.SetStatus(codes.Ok, "completed")
	ot.span.End()

	fields := append(append([]any{}, ot.fields...), "duration_ms", duration.Milliseconds())
	DebugSkip(ot.ctx, 1, "Operation completed", append(fields, additionalFields...)...)
	return duration
}

// EndWithError closes the span as failed and logs err
func (ot *OperationTimer) EndWithError(err error, additionalFields ...any) time.Duration {
	duration := time.Since(ot.start)

	ot.span.SetAttributes(attribute.Int64("duration_ms", duration.Milliseconds()))
	ot.span.RecordError(err)
	ot.span.SetStatus(codes.Error, err.Error())
	ot.span.End()

	fields := append(append([]any{}, ot.fields...), "duration_ms", duration.Milliseconds(), "error", err)
	ErrorSkip(ot.ctx, 1, "Operation failed", append(fields, additionalFields...)...)
	return duration
}

// GetContext returns the context carrying the operation span
func (ot *OperationTimer) GetContext() context.Context {
	return ot.ctx
}

// Verdict logs a BUY/SELL/HOLD decision with its reasons
func Verdict(ctx context.Context, symbol, verdict string, score int, reasons []string, fields ...any) {
	if apptrace.Enabled() {
		span := trace.SpanFromContext(ctx)
		if span.SpanContext().IsValid() {
			span.AddEvent("verdict", trace.WithAttributes(
				attribute.String("symbol", symbol),
				attribute.String("verdict", verdict),
				attribute.Int("score", score),
				attribute.StringSlice("reasons", reasons),
			))
		}
	}

	allFields := append([]any{
		"type", "VERDICT",
		"symbol", symbol,
		"verdict", verdict,
		"score", score,
		"reasons", reasons,
	}, fields...)
	logWithTrace(ctx, slog.LevelInfo, "Verdict reached", 2, allFields...)
}

// ToolCall logs an agent tool invocation
func ToolCall(ctx context.Context, agent, tool string, duration time.Duration, err error) {
	if apptrace.Enabled() {
		span := trace.SpanFromContext(ctx)
		if span.SpanContext().IsValid() {
			span.AddEvent("tool_call", trace.WithAttributes(
				attribute.String("agent", agent),
				attribute.String("tool", tool),
				attribute.Bool("failed", err != nil),
			))
		}
	}

	fields := []any{
		"type", "TOOL",
		"agent", agent,
		"tool", tool,
		"duration_ms", duration.Milliseconds(),
	}
	if err != nil {
		logWithTrace(ctx, slog.LevelWarn, "Tool call failed", 2, append(fields, "error", err)...)
		return
	}
	logWithTrace(ctx, slog.LevelInfo, "Tool call completed", 2, fields...)
}

// IsDebugEnabled returns whether debug logging is enabled
func IsDebugEnabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return detailedLogging
}

// IsTracingEnabled returns whether tracing is enabled
func IsTracingEnabled() bool {
	return apptrace.Enabled()
}
