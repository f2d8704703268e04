package store

import "time"

// Run is one execution of the login sequence.
type Run struct {
	ID         string    `json:"id"`
	URL        string    `json:"url"`
	Username   string    `json:"username"`
	Engine     string    `json:"engine"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
	FinalState string    `json:"final_state"`
	Error      string    `json:"error,omitempty"`
}

// StepRecord is the outcome of one sequencer step within a run.
type StepRecord struct {
	RunID   string    `json:"run_id"`
	Seq     int       `json:"seq"`
	Step    string    `json:"step"`
	Outcome string    `json:"outcome"`
	Detail  string    `json:"detail,omitempty"`
	At      time.Time `json:"at"`
}

// RunWithSteps pairs a run with its recorded steps.
type RunWithSteps struct {
	Run   Run          `json:"run"`
	Steps []StepRecord `json:"steps"`
}
