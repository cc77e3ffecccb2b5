package rotation

import (
	"time"
)

const (
	encryptingShare = 90
	uploadCreepStep = 30 * time.Second
	uploadCreepMax  = 9
)

// Progress is what a user interface shows.
type Progress struct {
	Percent int
	Label   string
}

// Report maps a snapshot to a percentage:
// 0 while preparing and locking, up to 90 while re-encrypting, then one more
// point per 30s of upload up to 99, and 100 only once the server accepted.
// On error the last value is kept.
func Report(s Snapshot, now time.Time) Progress {
	return Progress{Percent: percent(s, now), Label: label(s)}
}

func percent(s Snapshot, now time.Time) int {
	switch s.Phase {
	case PhaseDone:
		return 100
	case PhaseError:
		return s.FrozenPercent
	case PhaseUploading:
		creep := 0
		if !s.UploadStartedAt.IsZero() {
			if elapsed := now.Sub(s.UploadStartedAt); elapsed > 0 {
				creep = min(uploadCreepMax, int(elapsed/uploadCreepStep))
			}
		}
		return encryptingShare + creep
	case PhaseEncrypting:
		if s.Total <= 0 {
			return 0
		}
		pct := s.Processed * encryptingShare / s.Total
		return max(0, min(encryptingShare, pct))
	}
	return 0
}

func label(s Snapshot) string {
	switch {
	case s.Phase == PhaseIdle:
		return ""
	case s.Status == "":
		return string(s.Phase)
	}
	return string(s.Phase) + ": " + s.Status
}
