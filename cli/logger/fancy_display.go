package logger

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/fastly/js-compute-runtime-sub002/core/state_display"
)

const (
	shoulder = "├── "
	elbow    = "└── "
	body     = "│   "
	indent   = "    "
)

var (
	majorTaskTitleStyle = lipgloss.NewStyle().
				Bold(true)

	minorTaskTitleStyle = lipgloss.NewStyle()

	doneStatusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#04B575")).
			Bold(true)
	errStatusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#D50000")).
			Bold(true)

	timeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#3C3C3C")).
			Italic(true)
)

// minor steps shorter than this are not worth a line
const minorStepThreshold = 200 * time.Millisecond

func viewMajorTask(major state_display.MajorStep) string {
	result := majorTaskTitleStyle.Render(major.Name) + " " + viewStatus(major.Status, major.StartedAt, major.EndedAt)
	if major.Status == state_display.StepStatusError && major.Error != "" {
		result += " " + errStyle.Render(major.Error)
	}
	result += "\n"

	minors := make([]string, 0, len(major.MinorSteps))
	for _, minor := range major.MinorSteps {
		if display := viewMinorTask(minor); display != "" {
			minors = append(minors, display)
		}
	}
	for stepCount, minorStepDisplay := range minors {
		last := stepCount == len(minors)-1
		if last {
			result += elbow
		} else {
			result += shoulder
		}
		for i, line := range strings.Split(minorStepDisplay, "\n") {
			if line == "" {
				continue
			}
			if i == 0 {
				result += line + "\n"
				continue
			}
			filler := body
			if last {
				filler = indent
			}
			result += filler + line + "\n"
		}
	}
	return result
}

func viewMinorTask(minor state_display.MinorStep) string {
	if minor.Duration() <= minorStepThreshold {
		return ""
	}
	result := minorTaskTitleStyle.Render(minor.Name) + " " + viewStatus(minor.Status, minor.StartedAt, minor.EndedAt)
	if minor.Status != state_display.StepStatusDone && len(minor.LogLines) > 0 {
		result += "\n"
		for i, line := range minor.LogLines {
			result += logStyle.Render(body + line)
			if i != len(minor.LogLines)-1 {
				result += "\n"
			}
		}
	}
	return result
}

func viewStatus(status state_display.StepStatus, startedAt, endedAt time.Time) string {
	switch status {
	case state_display.StepStatusDone:
		return doneStatusStyle.Render("[DONE]") + " " + timeStyle.Render("("+displayDuration(endedAt.Sub(startedAt))+")")
	case state_display.StepStatusError:
		return errStatusStyle.Render("[ERR]") + " " + timeStyle.Render("("+displayDuration(endedAt.Sub(startedAt))+")")
	default:
		return timeStyle.Render("(" + displayDuration(time.Since(startedAt)) + ")")
	}
}

func displayDuration(t time.Duration) string {
	return fmt.Sprintf("%.1fs", t.Seconds())
}

// StageDisplay prints every stage once it is over.
type StageDisplay struct {
	Out io.Writer

	mu      sync.Mutex
	printed int
}

func NewStageDisplay(out io.Writer) *StageDisplay {
	return &StageDisplay{Out: out}
}

// Attach makes the display follow the tracker.
func (d *StageDisplay) Attach(tracker *state_display.Tracker) {
	tracker.OnStateDisplayChanged = d.Update
}

func (d *StageDisplay) Update(display state_display.StateDisplay) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for d.printed < len(display.MajorsSteps) {
		major := display.MajorsSteps[d.printed]
		if major.Status == state_display.StepStatusPending {
			return
		}
		fmt.Fprint(d.Out, viewMajorTask(major))
		d.printed++
	}
}
