package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Meesho/BharatMLStack/onscene/pkg/configs"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger sets the global level and output from configs and returns the root logger.
func InitLogger(configs *configs.AppConfigs) (zerolog.Logger, error) {
	level, err := parseLevel(configs.Configs.ApplicationLogLevel)
	if err != nil {
		return zerolog.Nop(), err
	}
	zerolog.SetGlobalLevel(level)

	var out io.Writer = os.Stdout
	if configs.Configs.ApplicationEnv == "local" {
		out = zerolog.ConsoleWriter{Out: os.Stdout}
	}
	log.Logger = zerolog.New(out).With().
		Timestamp().
		Str("service", configs.Configs.ApplicationName).
		Str("env", configs.Configs.ApplicationEnv).
		Logger()
	log.Info().Msg("Logger initialized!")
	return log.Logger, nil
}

func parseLevel(level string) (zerolog.Level, error) {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return zerolog.DebugLevel, nil
	case "INFO":
		return zerolog.InfoLevel, nil
	case "WARN":
		return zerolog.WarnLevel, nil
	case "ERROR":
		return zerolog.ErrorLevel, nil
	case "FATAL":
		return zerolog.FatalLevel, nil
	case "PANIC":
		return zerolog.PanicLevel, nil
	case "DISABLED":
		return zerolog.Disabled, nil
	default:
		return zerolog.NoLevel, fmt.Errorf("incorrect log level %s", level)
	}
}

// For returns a child of parent tagged with the component name.
func For(parent zerolog.Logger, component string) zerolog.Logger {
	return parent.With().Str("component", component).Logger()
}
