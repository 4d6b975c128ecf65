package logger

import (
	"io"
	"os"

	"github.com/mattn/go-colorable"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

func New() (zerolog.Logger, error) {
	return NewWithOutput(os.Stderr, viper.GetString("log-level"), viper.GetString("log-format"))
}

// NewWithOutput builds the logger for an explicit level and format (auto, plain, json).
func NewWithOutput(out io.Writer, level string, format string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), errors.Wrapf(err, "invalid --log-level %q", level)
	}
	jsonLogs, err := JSONLogs(format)
	if err != nil {
		return zerolog.Nop(), err
	}

	logger := zerolog.
		New(out).
		With().
		Timestamp().
		Logger()
	if !jsonLogs {
		if out == os.Stderr {
			out = colorable.NewColorableStderr()
		}
		logger = logger.Output(&PlainOutput{Out: out})
	}
	return logger.Level(lvl), nil
}

func JSONLogs(format string) (bool, error) {
	switch format {
	case "json":
		return true, nil
	case "plain":
		return false, nil
	case "auto", "":
		return !term.IsTerminal(int(os.Stdout.Fd())), nil
	default:
		return false, errors.Errorf("invalid --log-format %q", format)
	}
}
