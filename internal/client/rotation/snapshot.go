package rotation

import (
	"time"

	"github.com/dmitrijs2005/manokeeper/internal/client/models"
)

type Phase string

const (
	PhaseIdle        Phase = ""
	PhasePreparation Phase = "Préparation"
	PhaseLocking     Phase = "Verrouillage"
	PhaseEncrypting  Phase = "Chiffrement"
	PhaseUploading   Phase = "Envoi"
	PhaseDone        Phase = "Terminé"
	PhaseError       Phase = "Erreur"
)

// Snapshot is the observable state of a rotation. It is a value: callers get
// copies and cannot change the orchestrator through it.
type Snapshot struct {
	Phase      Phase
	Status     string
	Collection models.Collection

	Processed int
	Total     int

	// UploadStartedAt is set on entering PhaseUploading.
	UploadStartedAt time.Time
	// FrozenPercent is what the progress bar showed when the rotation failed.
	FrozenPercent int

	Err error
}

// Running reports whether the rotation has started and not yet settled.
func (s Snapshot) Running() bool {
	switch s.Phase {
	case PhasePreparation, PhaseLocking, PhaseEncrypting, PhaseUploading:
		return true
	}
	return false
}
