package syncer

import (
	"fmt"
	"log/slog"
	"os"
	"time"
)

// runLog appends human-readable run markers and per-repository outcome lines
// to a plain text log file. The file is for humans; nothing reads it back.
type runLog struct {
	f *os.File
}

// openRunLog opens the log file for appending. An empty path disables the
// log; open failures are logged and likewise disable it rather than failing
// the run.
func openRunLog(path string, logger *slog.Logger) *runLog {
	if path == "" {
		return &runLog{}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		logger.Warn("cannot open run log", slog.String("path", path), slog.String("error", err.Error()))
		return &runLog{}
	}
	return &runLog{f: f}
}

func (l *runLog) printf(format string, args ...any) {
	if l.f == nil {
		return
	}
	line := fmt.Sprintf(format, args...)
	_, _ = fmt.Fprintf(l.f, "[%s] %s\n", time.Now().Format("2006-01-02 15:04:05"), line)
}

func (l *runLog) Close() {
	if l.f != nil {
		_ = l.f.Close()
	}
}
