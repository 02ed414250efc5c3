package ports

import (
	"phackdemo/domain/demo"
	"phackdemo/domain/trial"
)

// TrialSink receives the observable updates of a run. OnComplete fires exactly
// once, after the final OnTrial, and only for runs that reach their cap.
type TrialSink interface {
	OnTrial(event trial.Event)
	OnComplete(summary trial.Summary)
}

// SinkFuncs adapts plain functions to TrialSink; nil fields are ignored
type SinkFuncs struct {
	Trial    func(trial.Event)
	Complete func(trial.Summary)
}

func (f SinkFuncs) OnTrial(event trial.Event) {
	if f.Trial != nil {
		f.Trial(event)
	}
}

func (f SinkFuncs) OnComplete(summary trial.Summary) {
	if f.Complete != nil {
		f.Complete(summary)
	}
}

// UpdatePublisher fans session updates out to subscribers (e.g. SSE clients)
type UpdatePublisher interface {
	Publish(update demo.Update)
}
