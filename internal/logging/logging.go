package logging

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// New builds the shared structured logger. Level comes from LOG_LEVEL
// (default info); production environments get JSON output for log
// shippers, everything else stays human-readable.
func New(environment string) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stdout)

	if environment == "production" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	level, err := logrus.ParseLevel(strings.ToLower(os.Getenv("LOG_LEVEL")))
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	return log
}
