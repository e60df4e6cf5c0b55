package log

import (
	"github.com/TheZeroSlave/zapsentry"
	"github.com/mattn/go-colorable"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"log"
	"os"
	"path/filepath"
)

// NewLogger installs the global zap logger: JSON lines to path, colour on
// stdout, and errors to sentry when a DSN is given.
func NewLogger(path string, debug bool, sentryDsn string) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		log.Fatal(err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.Fatal(err)
	}

	level := zap.InfoLevel
	if debug {
		level = zap.DebugLevel
	}

	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig(false)), zapcore.AddSync(f), level),
		zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig(true)), zapcore.AddSync(colorable.NewColorableStdout()), level),
	)

	logger := zap.New(core)
	defer logger.Sync()

	if sentryDsn != "" {
		logger = modifyToSentryLogger(logger, sentryDsn)
	}

	zap.ReplaceGlobals(logger)
}

func encoderConfig(colour bool) zapcore.EncoderConfig {
	pe := zap.NewProductionEncoderConfig()
	pe.EncodeTime = zapcore.ISO8601TimeEncoder
	pe.MessageKey = "message"
	pe.TimeKey = "time"
	if colour {
		pe.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	return pe
}

type Logger interface {
	Printf(format string, v ...interface{})
}

// ElasticLogger forwards the elastic client's trace log to zap.
type ElasticLogger struct{}

func (ElasticLogger) Printf(format string, v ...interface{}) {
	zap.S().Debugf("Elastic: "+format, v...)
}

func modifyToSentryLogger(log *zap.Logger, DSN string) *zap.Logger {
	cfg := zapsentry.Configuration{
		Level:             zapcore.ErrorLevel,
		EnableBreadcrumbs: true,
		BreadcrumbLevel:   zapcore.InfoLevel,
		Tags: map[string]string{
			"component": "billing",
		},
	}
	core, err := zapsentry.NewCore(cfg, zapsentry.NewSentryClientFromDSN(DSN))

	// breadcrumbs need their own scope
	log = log.With(zapsentry.NewScope())

	// a failed core is a noop, safe to attach
	if err != nil {
		log.Warn("failed to init zap", zap.Error(err))
	}
	return zapsentry.AttachCoreToLogger(core, log)
}
