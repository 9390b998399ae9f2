package logging

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the process-wide logger. It is usable before Init with logrus
// defaults.
var Logger = logrus.New()

var once sync.Once

type Options struct {
	Level  string // debug, info, warn, error
	Format string // text or json
	File   string // rotated log file; stderr only when empty
	System string
}

// Init configures Logger once. Later calls are ignored.
func Init(opts Options) {
	once.Do(func() { configure(Logger, opts) })
}

func configure(l *logrus.Logger, opts Options) {
	level, err := logrus.ParseLevel(opts.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	if strings.EqualFold(opts.Format, "json") {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	var out io.Writer = os.Stderr
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			l.Fatalf("failed to create log directory: %v", err)
		}
		out = io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		})
	}
	l.SetOutput(out)

	if opts.System != "" {
		l.AddHook(systemHook(opts.System))
	}

	l.WithFields(logrus.Fields{
		"log_level": level.String(),
		"file":      opts.File,
	}).Info("Logger initialized")
}

// systemHook stamps every entry with the emitting service name.
type systemHook string

func (h systemHook) Levels() []logrus.Level { return logrus.AllLevels }

func (h systemHook) Fire(entry *logrus.Entry) error {
	if _, ok := entry.Data["system"]; !ok {
		entry.Data["system"] = string(h)
	}
	return nil
}
