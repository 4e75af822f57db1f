// Package log implements utility methods for logging in a colorful manner.
package log

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"
	isatty "github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

// FancyLogFormatter is the default logger for dca.
type FancyLogFormatter struct {
	UseColors bool

	// ShowCaller adds file and line of the log call.
	ShowCaller bool
}

var symbolTable = map[logrus.Level]string{
	logrus.DebugLevel: "⚙",
	logrus.InfoLevel:  "⚐",
	logrus.WarnLevel:  "⚠",
	logrus.ErrorLevel: "⚡",
	logrus.FatalLevel: "☣",
	logrus.PanicLevel: "☠",
}

var colorTable = map[logrus.Level]*color.Color{
	logrus.DebugLevel: color.New(color.FgCyan),
	logrus.InfoLevel:  color.New(color.FgGreen),
	logrus.WarnLevel:  color.New(color.FgYellow),
	logrus.ErrorLevel: color.New(color.FgRed),
	logrus.FatalLevel: color.New(color.FgMagenta),
	logrus.PanicLevel: color.New(color.FgMagenta),
}

func init() {
	// Colors are decided per formatter, not globally:
	for _, col := range colorTable {
		col.EnableColor()
	}
}

// IsTerminal tells if `w` is connected to a terminal.
func IsTerminal(w io.Writer) bool {
	fd, ok := w.(*os.File)
	if !ok {
		return false
	}

	return isatty.IsTerminal(fd.Fd()) || isatty.IsCygwinTerminal(fd.Fd())
}

// NewFormatter returns a formatter that only uses colors when `w` is a terminal.
func NewFormatter(w io.Writer) *FancyLogFormatter {
	return &FancyLogFormatter{UseColors: IsTerminal(w)}
}

func colorByLevel(level logrus.Level, msg string) string {
	col, ok := colorTable[level]
	if !ok {
		return msg
	}

	return col.Sprint(msg)
}

func formatColored(useColors bool, buffer *bytes.Buffer, msg string, level logrus.Level) {
	if useColors {
		buffer.WriteString(colorByLevel(level, msg))
	} else {
		buffer.WriteString(msg)
	}
}

func formatTimestamp(builder *strings.Builder, t time.Time) {
	fmt.Fprintf(builder, "%02d.%02d.%04d", t.Day(), t.Month(), t.Year())
	builder.WriteByte('/')
	fmt.Fprintf(builder, "%02d:%02d:%02d", t.Hour(), t.Minute(), t.Second())
}

func formatFields(useColors bool, buffer *bytes.Buffer, entry *logrus.Entry) {
	keys := make([]string, 0, len(entry.Data))
	for key := range entry.Data {
		keys = append(keys, key)
	}

	// Map order is random; keep the output stable:
	sort.Strings(keys)

	buffer.WriteString(" [")
	for idx, key := range keys {
		formatColored(useColors, buffer, key, entry.Level)
		buffer.WriteByte('=')

		switch v := entry.Data[key].(type) {
		case error:
			formatColored(useColors, buffer, v.Error(), logrus.ErrorLevel)
		default:
			buffer.WriteString(fmt.Sprintf("%v", v))
		}

		if idx != len(keys)-1 {
			buffer.WriteByte(' ')
		}
	}

	buffer.WriteByte(']')
}

var logSymbols = map[string]struct{}{
	"logrus.Debugf":   {},
	"logrus.Debug":    {},
	"logrus.Infof":    {},
	"logrus.Info":     {},
	"logrus.Warnf":    {},
	"logrus.Warn":     {},
	"logrus.Warningf": {},
	"logrus.Warning":  {},
	"logrus.Errorf":   {},
	"logrus.Error":    {},
	"logrus.Panic":    {},
	"logrus.Panicf":   {},
}

func findCaller() (string, int, bool) {
	// logrus adds some stuff to the stack trace.
	pcs := make([]uintptr, 20)
	nCallers := runtime.Callers(5, pcs)
	frames := runtime.CallersFrames(pcs[:nCallers])

	nextLineIsCallee := false
	for {
		frame, ok := frames.Next()
		if !ok {
			break
		}

		if nextLineIsCallee {
			// Inside of dca the path relative to the module is enough:
			tag := "dca/"
			modIdx := strings.LastIndex(frame.File, tag)
			if modIdx == -1 {
				return filepath.Base(frame.File), frame.Line, true
			}

			return frame.File[modIdx+len(tag):], frame.Line, true
		}

		lastIdx := strings.LastIndex(frame.Function, "/")
		if lastIdx == -1 {
			continue
		}

		// A call to the logrus API; the next frame is the log site.
		name := frame.Function[lastIdx+1:]
		name = strings.Replace(name, "(*Entry).", "", 1)
		_, nextLineIsCallee = logSymbols[name]
	}

	return "", 0, false
}

// Format logs a single entry according to our formatting ideas.
func (flf *FancyLogFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	prefix := strings.Builder{}
	formatTimestamp(&prefix, entry.Time)
	prefix.WriteByte(' ')
	prefix.WriteString(symbolTable[entry.Level])

	buffer := &bytes.Buffer{}
	formatColored(flf.UseColors, buffer, prefix.String(), entry.Level)

	if flf.ShowCaller {
		if file, line, ok := findCaller(); ok {
			buffer.WriteString(fmt.Sprintf(" %s:%d:", file, line))
		}
	}

	buffer.WriteByte(' ')
	buffer.WriteString(entry.Message)

	if len(entry.Data) > 0 {
		formatFields(flf.UseColors, buffer, entry)
	}

	buffer.WriteByte('\n')
	return buffer.Bytes(), nil
}

// ParseLevel converts a level name like "info" to a logrus level.
func ParseLevel(name string) (logrus.Level, error) {
	switch strings.ToLower(name) {
	case "debug":
		return logrus.DebugLevel, nil
	case "info":
		return logrus.InfoLevel, nil
	case "warn", "warning":
		return logrus.WarnLevel, nil
	case "error":
		return logrus.ErrorLevel, nil
	case "fatal":
		return logrus.FatalLevel, nil
	default:
		return logrus.InfoLevel, fmt.Errorf("unknown log level `%s`", name)
	}
}
