// Package mtplog extends Go's logging functionality to allow logging to
// multiple sinks (stderr and a per-node log file) at independent levels.
// It is deliberately small: mtpd runs one logger set for the process
// lifetime, there is no need for the named-logger registry the daemon's
// ancestor carried.
package mtplog

import (
	"fmt"
	"io"
	golog "log"
	"os"
	"runtime"
	"strconv"
	"sync"
)

// Log levels supported: DEBUG -> INFO -> WARN -> ERROR -> FATAL
const (
	DEBUG = iota
	INFO
	WARN
	ERROR
	FATAL
)

var (
	mu    sync.Mutex
	sinks []*sink
)

type sink struct {
	l     *golog.Logger
	level int
}

// AddSink registers an additional output for log messages at level or
// higher. Safe to call before or after logging has started.
func AddSink(w io.Writer, level int) {
	mu.Lock()
	defer mu.Unlock()
	sinks = append(sinks, &sink{golog.New(w, "", golog.LstdFlags), level})
}

func levelName(level int) string {
	switch level {
	case DEBUG:
		return "DEBUG "
	case INFO:
		return "INFO "
	case WARN:
		return "WARN "
	case ERROR:
		return "ERROR "
	default:
		return "FATAL "
	}
}

func caller() string {
	_, file, line, ok := runtime.Caller(3)
	if !ok {
		return ""
	}
	short := file
	for i := len(file) - 1; i > 0; i-- {
		if file[i] == '/' {
			short = file[i+1:]
			break
		}
	}
	return short + ":" + strconv.Itoa(line) + ": "
}

func logf(level int, format string, arg ...interface{}) {
	mu.Lock()
	defer mu.Unlock()

	if len(sinks) == 0 {
		// fall back to stderr so startup errors are never silently lost
		sinks = append(sinks, &sink{golog.New(os.Stderr, "", golog.LstdFlags), INFO})
	}

	msg := levelName(level) + caller() + fmt.Sprintf(format, arg...)
	for _, s := range sinks {
		if level >= s.level {
			s.l.Println(msg)
		}
	}
}

func Debug(format string, arg ...interface{}) { logf(DEBUG, format, arg...) }
func Info(format string, arg ...interface{})  { logf(INFO, format, arg...) }
func Warn(format string, arg ...interface{})  { logf(WARN, format, arg...) }
func Error(format string, arg ...interface{}) { logf(ERROR, format, arg...) }

// Fatal logs at FATAL and exits 1, matching the startup-fatal error
// disposition in the error handling design.
func Fatal(format string, arg ...interface{}) {
	logf(FATAL, format, arg...)
	os.Exit(1)
}

func LevelFromString(s string) (int, error) {
	switch s {
	case "debug":
		return DEBUG, nil
	case "info":
		return INFO, nil
	case "warn":
		return WARN, nil
	case "error":
		return ERROR, nil
	case "fatal":
		return FATAL, nil
	}
	return -1, fmt.Errorf("invalid log level %q", s)
}
