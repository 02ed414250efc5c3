package demo

import (
	"phackdemo/domain/core"
	"phackdemo/domain/trial"
)

// Phase is a step of the demonstration wizard
type Phase string

const (
	PhaseIntro        Phase = "intro"         // welcome text, nothing generated yet shown
	PhaseReady        Phase = "ready"         // experiment explained, analysis not started
	PhaseRunning      Phase = "running"       // trials being drawn
	PhaseRealityCheck Phase = "reality_check" // run finished, spurious results revealed
	PhaseExplanation  Phase = "explanation"   // background on p-hacking shown
)

// EventType labels updates pushed to session subscribers
type EventType string

const (
	EventTrial        EventType = "trial"
	EventComplete     EventType = "complete"
	EventRealityCheck EventType = "reality_check"
	EventAborted      EventType = "aborted"
	EventReset        EventType = "reset"
	EventPhase        EventType = "phase"
	EventSnapshot     EventType = "snapshot" // first event on every stream: the session as it stands
)

// Update is one observable change of a session
type Update struct {
	SessionID core.SessionID         `json:"session_id"`
	EventType EventType              `json:"event_type"`
	Phase     Phase                  `json:"phase"`
	Progress  float64                `json:"progress"`
	Trial     *trial.Event           `json:"trial,omitempty"`
	Summary   *trial.Summary         `json:"summary,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Timestamp core.Timestamp         `json:"timestamp"`
}

// View is a read-only snapshot of a session for presentation layers
type View struct {
	ID               core.SessionID    `json:"id"`
	Phase            Phase             `json:"phase"`
	Seed             int64             `json:"seed"`
	Generation       int               `json:"generation"`
	BatchFingerprint core.Hash         `json:"batch_fingerprint"`
	BatchSize        int               `json:"batch_size"`
	SampleSize       int               `json:"sample_size"`
	TrialCap         int               `json:"trial_cap"`
	TrialsCompleted  int               `json:"trials_completed"`
	SignificantCount int               `json:"significant_count"`
	Current          *trial.Comparison `json:"current,omitempty"`
	RunID            core.RunID        `json:"run_id,omitempty"`
	Message          string            `json:"message,omitempty"`
}

// Progress is the completed fraction of the run
func (v View) Progress() float64 {
	if v.TrialCap == 0 {
		return 0
	}
	return float64(v.TrialsCompleted) / float64(v.TrialCap)
}
