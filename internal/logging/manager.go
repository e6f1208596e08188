package logging

import (
	"fmt"
	"sort"
	"sync"
)

// LoggerManager кэширует по одному логгеру на компонент.
// Уровни, заданные через SetAllLevels, применяются и к логгерам, созданным позже.
type LoggerManager struct {
	mu      sync.Mutex
	loggers map[string]*Logger

	console LogLevel
	file    LogLevel
}

var (
	globalManager *LoggerManager
	managerOnce   sync.Once
)

// GetLoggerManager возвращает глобальный менеджер логгеров
func GetLoggerManager() *LoggerManager {
	managerOnce.Do(func() {
		globalManager = newLoggerManager()
	})
	return globalManager
}

func newLoggerManager() *LoggerManager {
	return &LoggerManager{
		loggers: make(map[string]*Logger),
		console: INFO,
		file:    TRACE,
	}
}

// GetLogger возвращает логгер компонента, создавая его при первом обращении
func (lm *LoggerManager) GetLogger(component string) (*Logger, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	if logger, ok := lm.loggers[component]; ok {
		return logger, nil
	}
	logger, err := NewLogger(component)
	if err != nil {
		return nil, fmt.Errorf("логгер %s: %w", component, err)
	}
	logger.SetLevel(lm.console, lm.file)
	lm.loggers[component] = logger
	return logger, nil
}

// MustGetLogger как GetLogger, но при ошибке файла возвращает консольный логгер
func (lm *LoggerManager) MustGetLogger(component string) *Logger {
	logger, err := lm.GetLogger(component)
	if err == nil {
		return logger
	}
	Warn("логгер %s работает без файла: %v", component, err)

	lm.mu.Lock()
	defer lm.mu.Unlock()
	if existing, ok := lm.loggers[component]; ok {
		return existing
	}
	logger = NewConsoleLogger(component, getDefault().consoleLogger.Writer())
	logger.SetLevel(lm.console, lm.file)
	lm.loggers[component] = logger
	return logger
}

// SetLogLevel меняет уровни одного уже созданного логгера
func (lm *LoggerManager) SetLogLevel(component string, consoleLevel, fileLevel LogLevel) error {
	lm.mu.Lock()
	logger, ok := lm.loggers[component]
	lm.mu.Unlock()
	if !ok {
		return fmt.Errorf("логгер %s не создан", component)
	}
	logger.SetLevel(consoleLevel, fileLevel)
	return nil
}

// SetAllLevels меняет уровни всех логгеров, текущих и будущих
func (lm *LoggerManager) SetAllLevels(consoleLevel, fileLevel LogLevel) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	lm.console, lm.file = consoleLevel, fileLevel
	for _, logger := range lm.loggers {
		logger.SetLevel(consoleLevel, fileLevel)
	}
}

// Components имена компонентов с созданными логгерами, по алфавиту
func (lm *LoggerManager) Components() []string {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	out := make([]string, 0, len(lm.loggers))
	for c := range lm.loggers {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// CloseAll закрывает файлы всех логгеров и сбрасывает кэш
func (lm *LoggerManager) CloseAll() error {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	var firstErr error
	for component, logger := range lm.loggers {
		if err := logger.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("закрытие логгера %s: %w", component, err)
		}
	}
	lm.loggers = make(map[string]*Logger)
	return firstErr
}

func GetComponentLogger(component string) *Logger {
	return GetLoggerManager().MustGetLogger(component)
}

func GetNetworkLogger() *Logger { return GetComponentLogger("network") }
func GetServerLogger() *Logger  { return GetComponentLogger("server") }
func GetWorldLogger() *Logger   { return GetComponentLogger("world") }
func GetStorageLogger() *Logger { return GetComponentLogger("storage") }
func GetEventLogger() *Logger   { return GetComponentLogger("events") }
