package logrus

import (
	"fmt"
	"io"
	"os"

	"github.com/raykavin/perfscope/pkg/logger"
	"github.com/sirupsen/logrus"
)

// Options configures the logger built by New
type Options struct {
	Level          string    // level name understood by logger.ParseLevel
	DateTimeLayout string    // layout of the timestamp field
	Colored        bool      // colorize the text output
	JSON           bool      // emit JSON lines instead of text
	Out            io.Writer // destination, stdout when nil
}

// New builds a logrus logger writing to the console
func New(opts Options) (*logrus.Logger, error) {
	level, ok := logger.ParseLevel(opts.Level)
	if !ok {
		return nil, fmt.Errorf("invalid log level %q", opts.Level)
	}

	log := logrus.New()
	log.SetOutput(os.Stdout)
	if opts.Out != nil {
		log.SetOutput(opts.Out)
	}

	if opts.JSON {
		log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: opts.DateTimeLayout})
	} else {
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: opts.DateTimeLayout,
			ForceColors:     opts.Colored,
			DisableColors:   !opts.Colored,
		})
	}

	setLevel(log, level)
	return log, nil
}
