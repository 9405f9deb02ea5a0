package logging

import (
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Setup configures the standard logrus logger: level plus a text formatter
// with millisecond timestamps.
func Setup(level string) error {
	parsed, err := log.ParseLevel(level)
	if err != nil {
		return errors.Wrapf(err, "cannot parse log level %q", level)
	}
	log.SetLevel(parsed)

	formatter := new(log.TextFormatter)
	formatter.TimestampFormat = "2006-01-02T15:04:05.999Z07:00"
	formatter.FullTimestamp = true
	log.SetFormatter(formatter)

	log.Debug("debug logging enabled")
	return nil
}
