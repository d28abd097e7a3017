package telemetry

import (
	"fmt"
	"log/slog"
	"os"
)

// InitSlog sets the default slog logger, debug reports are only shown when verbose.
func InitSlog(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

// SlogAPI implements API using the log/slog package.
type SlogAPI struct{}

// attrs turns report params into slog key/value pairs. Errors are logged under "err", a
// second error becomes "err.1" and so on, everything else is positional.
func (SlogAPI) attrs(params []any, prefix ...any) []any {
	out := prefix
	errs := 0
	for i, p := range params {
		if err, ok := p.(error); ok {
			key := "err"
			if errs > 0 {
				key = fmt.Sprintf("err.%d", errs)
			}
			errs++
			out = append(out, key, err.Error())
			continue
		}
		out = append(out, fmt.Sprintf("params.%d", i), p)
	}
	return out
}

func (s SlogAPI) ReportBroken(id string, params ...any) {
	slog.Error("broken component", s.attrs(params, "id", id)...)
}

func (s SlogAPI) ReportWarning(id string, params ...any) {
	slog.Warn("warning", s.attrs(params, "id", id)...)
}

func (s SlogAPI) ReportDebug(message string, params ...any) {
	slog.Debug(message, s.attrs(params)...)
}

func (s SlogAPI) ReportCount(id string, count int64) {
	slog.Debug("count", "id", id, "n", count)
}
