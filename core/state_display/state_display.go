package state_display

import (
	"sync"
	"time"
)

type StepStatus = string

const (
	StepStatusPending = "PENDING"
	StepStatusDone    = "DONE"
	StepStatusError   = "ERROR"
)

type StateDisplay struct {
	MajorsSteps []MajorStep
}

type MajorStep struct {
	Name       string
	StartedAt  time.Time
	EndedAt    time.Time
	Status     StepStatus
	Error      string
	MinorSteps []MinorStep
}

type MinorStep struct {
	Name      string
	StartedAt time.Time
	EndedAt   time.Time
	Status    StepStatus
	LogLines  []string
}

func (s MajorStep) Duration() time.Duration {
	if s.EndedAt.IsZero() {
		return time.Since(s.StartedAt)
	}
	return s.EndedAt.Sub(s.StartedAt)
}

func (s MinorStep) Duration() time.Duration {
	if s.EndedAt.IsZero() {
		return time.Since(s.StartedAt)
	}
	return s.EndedAt.Sub(s.StartedAt)
}

// Tracker records the stages of one compilation. A nil *Tracker is valid and records nothing.
type Tracker struct {
	mu sync.Mutex

	state          StateDisplay
	majorStepIndex map[string]int
	minorStepIndex map[string]map[string]int

	OnStateDisplayChanged func(stateDisplay StateDisplay)
	now                   func() time.Time
}

func NewTracker() *Tracker {
	return &Tracker{
		majorStepIndex: map[string]int{},
		minorStepIndex: map[string]map[string]int{},
		now:            time.Now,
	}
}

func (t *Tracker) StartMajorStep(name string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	t.majorStepIndex[name] = len(t.state.MajorsSteps)
	t.state.MajorsSteps = append(t.state.MajorsSteps, MajorStep{
		Name:      name,
		StartedAt: t.now(),
		Status:    StepStatusPending,
	})
	t.mu.Unlock()
	t.changed()
}

// EndMajorStep closes the step, marking it failed when err is non-nil.
func (t *Tracker) EndMajorStep(name string, err error) {
	if t == nil {
		return
	}
	t.mu.Lock()
	i, ok := t.majorStepIndex[name]
	if !ok {
		t.mu.Unlock()
		return
	}
	majorStep := t.state.MajorsSteps[i]
	majorStep.EndedAt = t.now()
	majorStep.Status = StepStatusDone
	if err != nil {
		majorStep.Status = StepStatusError
		majorStep.Error = err.Error()
	}
	t.state.MajorsSteps[i] = majorStep
	delete(t.majorStepIndex, name)
	delete(t.minorStepIndex, name)
	t.mu.Unlock()
	t.changed()
}

func (t *Tracker) StartMinorStep(parentName string, name string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	i, ok := t.majorStepIndex[parentName]
	if !ok {
		t.mu.Unlock()
		return
	}
	majorStep := t.state.MajorsSteps[i]
	if t.minorStepIndex[parentName] == nil {
		t.minorStepIndex[parentName] = map[string]int{}
	}
	t.minorStepIndex[parentName][name] = len(majorStep.MinorSteps)
	majorStep.MinorSteps = append(majorStep.MinorSteps, MinorStep{
		Name:      name,
		StartedAt: t.now(),
		Status:    StepStatusPending,
	})
	t.state.MajorsSteps[i] = majorStep
	t.mu.Unlock()
	t.changed()
}

func (t *Tracker) EndMinorStep(parentName string, name string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	i, ok := t.majorStepIndex[parentName]
	j, minorOk := t.minorStepIndex[parentName][name]
	if !ok || !minorOk {
		t.mu.Unlock()
		return
	}
	majorStep := t.state.MajorsSteps[i]
	minorStep := majorStep.MinorSteps[j]
	minorStep.EndedAt = t.now()
	minorStep.Status = StepStatusDone
	majorStep.MinorSteps[j] = minorStep
	delete(t.minorStepIndex[parentName], name)
	t.state.MajorsSteps[i] = majorStep
	t.mu.Unlock()
	t.changed()
}

func (t *Tracker) AddLogLine(parentName string, name string, line string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	i, ok := t.majorStepIndex[parentName]
	j, minorOk := t.minorStepIndex[parentName][name]
	if !ok || !minorOk {
		t.mu.Unlock()
		return
	}
	majorStep := t.state.MajorsSteps[i]
	minorStep := majorStep.MinorSteps[j]
	minorStep.LogLines = append(minorStep.LogLines, line)
	majorStep.MinorSteps[j] = minorStep
	t.state.MajorsSteps[i] = majorStep
	t.mu.Unlock()
	t.changed()
}

// State returns a copy of the recorded steps.
func (t *Tracker) State() StateDisplay {
	if t == nil {
		return StateDisplay{}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	out := StateDisplay{MajorsSteps: make([]MajorStep, len(t.state.MajorsSteps))}
	for i, major := range t.state.MajorsSteps {
		major.MinorSteps = append([]MinorStep(nil), major.MinorSteps...)
		out.MajorsSteps[i] = major
	}
	return out
}

func (t *Tracker) changed() {
	if t.OnStateDisplayChanged != nil {
		t.OnStateDisplayChanged(t.State())
	}
}
