// ABOUTME: Overview aggregates per-feature sync status for the dashboard header
// ABOUTME: Reports the busiest phase, latest save and which features failed

package dashboard

import (
	"encoding/json"
	"time"

	"github.com/issambenlahbib/levelupmy-life/internal/synced"
)

// Overview is the sync summary of one workspace.
type Overview struct {
	UserID    string
	Phase     synced.Phase
	LastSaved time.Time
	Failed    []string
	Features  []synced.Status
}

func summarize(uid string, statuses []synced.Status) Overview {
	ov := Overview{UserID: uid, Phase: synced.PhaseIdle, Failed: []string{}, Features: statuses}
	for _, st := range statuses {
		switch st.Phase() {
		case synced.PhaseLoading:
			ov.Phase = synced.PhaseLoading
		case synced.PhaseSaving:
			if ov.Phase == synced.PhaseIdle {
				ov.Phase = synced.PhaseSaving
			}
		}
		if st.State == synced.StateFailed || st.SaveError != nil {
			ov.Failed = append(ov.Failed, st.Feature)
		}
		if st.LastSaved.After(ov.LastSaved) {
			ov.LastSaved = st.LastSaved
		}
	}
	return ov
}

// Status returns the status of one feature.
func (o Overview) Status(feature string) (synced.Status, bool) {
	for _, st := range o.Features {
		if st.Feature == feature {
			return st, true
		}
	}
	return synced.Status{}, false
}

// MarshalJSON omits an unset LastSaved.
func (o Overview) MarshalJSON() ([]byte, error) {
	out := struct {
		UserID    string          `json:"uid"`
		Phase     synced.Phase    `json:"phase"`
		LastSaved *time.Time      `json:"lastSaved,omitempty"`
		Failed    []string        `json:"failed"`
		Features  []synced.Status `json:"features"`
	}{
		UserID:   o.UserID,
		Phase:    o.Phase,
		Failed:   o.Failed,
		Features: o.Features,
	}
	if !o.LastSaved.IsZero() {
		t := o.LastSaved
		out.LastSaved = &t
	}
	return json.Marshal(out)
}
