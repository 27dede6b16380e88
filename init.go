package perfscope

import (
	"fmt"
	"os"
	"strconv"

	"github.com/raykavin/perfscope/pkg/logger"
	"github.com/raykavin/perfscope/pkg/logger/logrus"
	"github.com/raykavin/perfscope/pkg/logger/zerolog"
)

const (
	// Default configuration values
	defaultLogLevel      = "info"
	defaultLogTimeFormat = "2006-01-02 15:04:05"
	defaultLogColored    = "true"
	defaultLogJSON       = "false"
	defaultLogBackend    = backendZerolog
)

// Log backends selectable with PERFSCOPE_LOG_BACKEND
const (
	backendZerolog = "zerolog"
	backendLogrus  = "logrus"
)

// Environment variable names
const (
	envLogLevel      = "PERFSCOPE_LOG_LEVEL"
	envLogTimeFormat = "PERFSCOPE_LOG_TIME_FORMAT"
	envLogColor      = "PERFSCOPE_LOG_COLOR"
	envLogJSON       = "PERFSCOPE_LOG_JSON"
	envLogBackend    = "PERFSCOPE_LOG_BACKEND"
)

// DefaultLog is the logger used when no other is given
var DefaultLog logger.Logger

func init() {
	// Initialize the logger with configuration from environment variables
	log, err := initLogger()
	if err != nil {
		panic(err)
	}

	DefaultLog = log
}

// initLogger creates a new logger instance configured from environment variables
func initLogger() (logger.Logger, error) {
	logColored, err := parseBoolEnv(envLogColor, defaultLogColored)
	if err != nil {
		return nil, err
	}

	logJSON, err := parseBoolEnv(envLogJSON, defaultLogJSON)
	if err != nil {
		return nil, err
	}

	level := getEnvWithDefault(envLogLevel, defaultLogLevel)
	timeFormat := getEnvWithDefault(envLogTimeFormat, defaultLogTimeFormat)

	switch backend := getEnvWithDefault(envLogBackend, defaultLogBackend); backend {
	case backendZerolog:
		log, err := zerolog.New(zerolog.Options{
			Level:          level,
			DateTimeLayout: timeFormat,
			Colored:        logColored,
			JSON:           logJSON,
		})
		if err != nil {
			return nil, err
		}
		return zerolog.NewAdapter(log), nil

	case backendLogrus:
		log, err := logrus.New(logrus.Options{
			Level:          level,
			DateTimeLayout: timeFormat,
			Colored:        logColored,
			JSON:           logJSON,
		})
		if err != nil {
			return nil, err
		}
		return logrus.NewAdapter(log), nil

	default:
		return nil, fmt.Errorf("unknown log backend %q", backend)
	}
}

// getEnvWithDefault returns the value of the environment variable or the default if not set
func getEnvWithDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// parseBoolEnv gets a boolean environment variable with a default value
func parseBoolEnv(key, defaultValue string) (bool, error) {
	value := getEnvWithDefault(key, defaultValue)
	return strconv.ParseBool(value)
}
