package logger

import (
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	maxFileSizeMB = 20
	maxBackups    = 12
)

var Log zerolog.Logger

var (
	mu         sync.Mutex
	console    io.Writer = os.Stdout
	logDir     string
	files      = map[string]*lumberjack.Logger{}
	components = map[string]zerolog.Logger{}
)

// Init configures the global logger. When dir is not empty every component
// logger also writes to its own rotating file under dir.
func Init(isDev bool, dir, level string) {
	zerolog.TimeFieldFormat = time.RFC3339

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	mu.Lock()
	defer mu.Unlock()

	if isDev {
		console = zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: "15:04:05",
		}
	} else {
		console = os.Stdout
	}

	logDir = dir
	if logDir != "" {
		if err := os.MkdirAll(logDir, 0o755); err != nil {
			logDir = ""
		}
	}
	components = map[string]zerolog.Logger{}

	Log = zerolog.New(console).With().Timestamp().Logger()
}

// Component returns a logger tagged with name. Its output is mirrored to the
// console and to <dir>/<name>.log.
func Component(name string) zerolog.Logger {
	mu.Lock()
	defer mu.Unlock()

	if l, ok := components[name]; ok {
		return l
	}

	var out io.Writer = console
	if logDir != "" {
		f, ok := files[name]
		if !ok {
			f = &lumberjack.Logger{
				Filename:   filepath.Join(logDir, name+".log"),
				MaxSize:    maxFileSizeMB,
				MaxBackups: maxBackups,
			}
			files[name] = f
		}
		out = zerolog.MultiLevelWriter(console, f)
	}

	l := zerolog.New(out).With().Timestamp().Str("component", name).Logger()
	components[name] = l
	return l
}

// Close flushes and closes the rotating log files.
func Close() {
	mu.Lock()
	defer mu.Unlock()

	for name, f := range files {
		f.Close()
		delete(files, name)
	}
	components = map[string]zerolog.Logger{}
}

func IsDev() bool {
	env := os.Getenv("ENV")
	return env == "" || env == "dev" || env == "development"
}
