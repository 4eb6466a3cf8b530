package logger

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Log is the shared logger instance for the storage layer.
var Log = logrus.New()

type storageFormatter struct{}

func (f *storageFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	timestamp := entry.Time.Format("15:04:05 MST 2006/01/02")

	level := strings.ToUpper(entry.Level.String())
	if len(level) > 4 {
		level = level[:4]
	}

	msg := entry.Message
	if len(entry.Data) > 0 {
		fields := make([]string, 0, len(entry.Data))
		for k, v := range entry.Data {
			fields = append(fields, fmt.Sprintf("%s=%v", k, v))
		}
		msg = fmt.Sprintf("%s {%s}", msg, strings.Join(fields, " "))
	}

	return []byte(fmt.Sprintf("[%s] [%s] %s\n", timestamp, level, msg)), nil
}

func init() {
	Log.SetOutput(os.Stderr)
	Log.SetFormatter(&storageFormatter{})
	Log.SetLevel(logrus.InfoLevel)
}

// SetLevel adjusts the log level from its textual form. Unknown levels
// fall back to info.
func SetLevel(level string) {
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	Log.SetLevel(parsed)
}
