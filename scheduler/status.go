package scheduler

import (
	"time"

	"resort-billing/reminder"
)

// CheckStatus is the externally visible state of one check.
type CheckStatus struct {
	Name       string           `json:"name"`
	Spec       string           `json:"spec"`
	Next       *time.Time       `json:"next,omitempty"`
	Prev       *time.Time       `json:"prev,omitempty"`
	Running    bool             `json:"running"`
	LastResult *reminder.Result `json:"last_result,omitempty"`
	LastError  string           `json:"last_error,omitempty"`
}

// Snapshot reports every check in registration order.
func (s *Scheduler) Snapshot() []CheckStatus {
	out := make([]CheckStatus, 0, len(Checks))
	for _, name := range Checks {
		st := CheckStatus{
			Name: name,
			Spec: s.spec(name),
			Next: s.NextRun(name),
			Prev: s.prevRun(name),
		}

		s.smu.RLock()
		st.Running = s.running[name]
		if res, ok := s.last[name]; ok {
			r := res
			st.LastResult = &r
		}
		st.LastError = s.lastErr[name]
		s.smu.RUnlock()

		out = append(out, st)
	}
	return out
}
