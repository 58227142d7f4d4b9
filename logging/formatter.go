package logging

import (
	"bytes"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/grovetools/agents/tui/theme"
	"github.com/sirupsen/logrus"
)

const timestampLayout = "2006-01-02 15:04:05"

// TextFormatter renders `<time> [LEVEL] [component] message key=value...`.
type TextFormatter struct {
	Config FormatConfig
}

func (f *TextFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	var b bytes.Buffer

	if !f.Config.NoTimestamp {
		b.WriteString(entry.Time.Format(timestampLayout))
		b.WriteByte(' ')
	}
	b.WriteString(levelTag(entry.Level))

	if component, ok := entry.Data["component"]; ok && !f.Config.NoComponent {
		fmt.Fprintf(&b, " [%s]", theme.DefaultTheme.Accent.Render(fmt.Sprint(component)))
	}
	if entry.HasCaller() {
		fmt.Fprintf(&b, " [%s:%d]", filepath.Base(entry.Caller.File), entry.Caller.Line)
	}

	b.WriteByte(' ')
	b.WriteString(entry.Message)
	writeFields(&b, entry.Data)
	b.WriteByte('\n')
	return b.Bytes(), nil
}

func levelTag(level logrus.Level) string {
	name := strings.ToUpper(level.String())
	if level == logrus.WarnLevel {
		name = "WARN"
	}
	tag := "[" + name + "]"
	th := theme.DefaultTheme
	switch level {
	case logrus.PanicLevel, logrus.FatalLevel, logrus.ErrorLevel:
		return th.Error.Render(tag)
	case logrus.WarnLevel:
		return th.Warning.Render(tag)
	case logrus.DebugLevel, logrus.TraceLevel:
		return th.Muted.Render(tag)
	}
	return tag
}

// writeFields appends the entry's fields in key order, skipping component.
func writeFields(b *bytes.Buffer, data logrus.Fields) {
	keys := make([]string, 0, len(data))
	for key := range data {
		if key != "component" {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	for _, key := range keys {
		value := fmt.Sprint(data[key])
		if strings.ContainsAny(value, " \t\n\"") {
			value = fmt.Sprintf("%q", value)
		}
		fmt.Fprintf(b, " %s=%s", key, value)
	}
}
