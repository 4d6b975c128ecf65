package logger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"
)

// PlainOutput renders zerolog JSON events as one styled line each.
type PlainOutput struct {
	Out io.Writer
}

var (
	logStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#3C3C3C"))
	infoStyle = lipgloss.NewStyle()
	errStyle  = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#D50000"))
	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#E2B603"))
	fieldStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7D7D7D")).
			Italic(true)
)

func (o *PlainOutput) Write(p []byte) (int, error) {
	event := map[string]interface{}{}
	d := json.NewDecoder(bytes.NewReader(p))
	d.UseNumber()
	if err := d.Decode(&event); err != nil {
		return 0, fmt.Errorf("cannot decode event: %s", err)
	}

	level, _ := event[zerolog.LevelFieldName].(string)
	message, _ := event[zerolog.MessageFieldName].(string)
	errText, _ := event[zerolog.ErrorFieldName].(string)
	delete(event, zerolog.LevelFieldName)
	delete(event, zerolog.MessageFieldName)
	delete(event, zerolog.ErrorFieldName)
	delete(event, zerolog.TimestampFieldName)

	style := infoStyle
	switch l, _ := zerolog.ParseLevel(level); l {
	case zerolog.TraceLevel, zerolog.DebugLevel:
		style = logStyle
	case zerolog.WarnLevel:
		style = warnStyle
	case zerolog.ErrorLevel, zerolog.FatalLevel, zerolog.PanicLevel:
		style = errStyle
	}

	text := message
	if errText != "" {
		if text != "" {
			text += ": "
		}
		text += errText
	}
	line := style.Render(text)
	if fields := formatFields(event); fields != "" {
		line += " " + fieldStyle.Render(fields)
	}
	if _, err := fmt.Fprintln(o.Out, line); err != nil {
		return 0, err
	}
	return len(p), nil
}

func formatFields(event map[string]interface{}) string {
	keys := make([]string, 0, len(event))
	for k := range event {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, event[k]))
	}
	return strings.Join(parts, " ")
}
