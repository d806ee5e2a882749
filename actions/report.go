package actions

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

type StepStatus string

const (
	StepOK      StepStatus = "ok"
	StepWarn    StepStatus = "warn"
	StepSkipped StepStatus = "skipped"
)

// Step is one recorded pipeline step.
type Step struct {
	Name   string     `json:"name"`
	Status StepStatus `json:"status"`
	Detail string     `json:"detail,omitempty"`
}

// Report collects what a run did and found, for the closing summary and the
// optional GCS upload.
type Report struct {
	Action     string    `json:"action"`
	Project    string    `json:"project"`
	Policy     string    `json:"policy"`
	LBAddress  string    `json:"lb_address,omitempty"`
	ProbeIP    string    `json:"probe_ip,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Steps      []Step    `json:"steps"`
}

func NewReport(action, project, policy string) *Report {
	return &Report{
		Action:    action,
		Project:   project,
		Policy:    policy,
		StartedAt: time.Now(),
	}
}

func (r *Report) add(name string, status StepStatus, format string, args ...interface{}) {
	r.Steps = append(r.Steps, Step{
		Name:   name,
		Status: status,
		Detail: fmt.Sprintf(format, args...),
	})
}

func (r *Report) Ok(name, format string, args ...interface{}) {
	r.add(name, StepOK, format, args...)
}

func (r *Report) Warn(name, format string, args ...interface{}) {
	r.add(name, StepWarn, format, args...)
}

func (r *Report) Skip(name, format string, args ...interface{}) {
	r.add(name, StepSkipped, format, args...)
}

// Step returns the recorded step with the given name, nil when absent.
func (r *Report) Step(name string) *Step {
	for i := range r.Steps {
		if r.Steps[i].Name == name {
			return &r.Steps[i]
		}
	}

	return nil
}

// Warnings counts the recorded warning steps.
func (r *Report) Warnings() int {
	n := 0

	for _, st := range r.Steps {
		if st.Status == StepWarn {
			n++
		}
	}

	return n
}

func (r *Report) Finish() {
	r.FinishedAt = time.Now()
}

func (r *Report) Elapsed() time.Duration {
	end := r.FinishedAt
	if end.IsZero() {
		end = time.Now()
	}

	return end.Sub(r.StartedAt).Round(time.Second)
}

func (r *Report) JSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// Log prints the per-step outcomes and the closing line.
func (r *Report) Log(log zerolog.Logger) {
	for _, st := range r.Steps {
		ev := log.Info()
		if st.Status == StepWarn {
			ev = log.Warn()
		}

		ev.Str("step", st.Name).Msg(st.Detail)
	}

	log.Info().
		Str("action", r.Action).
		Int("steps", len(r.Steps)).
		Int("warnings", r.Warnings()).
		Dur("elapsed", r.Elapsed()).
		Msg("done")
}
