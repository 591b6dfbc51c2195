package common

import (
	"sync"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/arbor/models"
)

var (
	globalLogger arbor.ILogger
	loggerMu     sync.RWMutex
)

// GetLogger returns the process-wide logger, falling back to a console
// logger if SetupLogger hasn't run yet (startup-order safety net, as in
// the teacher's common.GetLogger).
func GetLogger() arbor.ILogger {
	loggerMu.RLock()
	if globalLogger != nil {
		defer loggerMu.RUnlock()
		return globalLogger
	}
	loggerMu.RUnlock()

	loggerMu.Lock()
	defer loggerMu.Unlock()
	if globalLogger == nil {
		globalLogger = arbor.NewLogger().WithConsoleWriter(writerConfig(models.LogWriterTypeConsole, ""))
		globalLogger.Warn().Msg("using fallback logger - SetupLogger should be called during startup")
	}
	return globalLogger
}

// SetupLogger builds and installs the global logger from config.
func SetupLogger(cfg *Config) arbor.ILogger {
	logger := arbor.NewLogger()

	writeConsole := false
	writeFile := false
	for _, out := range cfg.Logging.Output {
		switch out {
		case "console", "stdout":
			writeConsole = true
		case "file":
			writeFile = true
		}
	}
	if writeConsole || !writeFile {
		logger = logger.WithConsoleWriter(writerConfig(models.LogWriterTypeConsole, ""))
	}
	if writeFile {
		logger = logger.WithFileWriter(writerConfig(models.LogWriterTypeFile, "logs/threatwatch.log"))
	}
	logger = logger.WithMemoryWriter(writerConfig(models.LogWriterTypeMemory, ""))
	logger = logger.WithLevelFromString(cfg.Logging.Level)

	loggerMu.Lock()
	globalLogger = logger
	loggerMu.Unlock()

	return logger
}

func writerConfig(writerType models.LogWriterType, filename string) models.WriterConfiguration {
	return models.WriterConfiguration{
		Type:             writerType,
		FileName:         filename,
		TimeFormat:       "15:04:05.000",
		DisableTimestamp: false,
		MaxSize:          100 * 1024 * 1024,
		MaxBackups:       3,
	}
}
