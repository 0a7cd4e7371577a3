// Package logger holds the process-wide structured logger.
package logger

import (
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// Log is the global logger used by every package in the module.
// It is usable before Init is called; Init only reconfigures it.
var Log = logrus.New()

var initOnce sync.Once

// Init configures the global logger from the environment.
// LOG_LEVEL selects the level (default "info"), LOG_FORMAT=json switches to
// the JSON formatter, anything else uses the text formatter.
func Init() {
	initOnce.Do(func() {
		Configure(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))
	})
}

// Configure applies a level and format to the global logger.
func Configure(levelName, format string) {
	if levelName == "" {
		levelName = "info"
	}
	level, err := logrus.ParseLevel(levelName)
	if err != nil {
		level = logrus.InfoLevel
	}
	Log.SetLevel(level)

	if strings.ToLower(format) == "json" {
		Log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		Log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	Log.SetOutput(os.Stdout)
}
