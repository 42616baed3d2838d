package careerengine

import (
	"errors"

	"github.com/jobmatch/careerengine/internal/models"
)

// Input errors: not ready conditions, not faults (spec §6 external failure
// modes, §7 taxonomy). Defined in internal/models so internal/database's
// adapters can return the same sentinel values without importing this
// package (see models/errors.go).
var (
	ErrNoDefaultResume = models.ErrNoDefaultResume
	ErrJobNotFound     = models.ErrJobNotFound
	ErrResumeMissing   = models.ErrResumeMissing
)

// Fault conditions.
var (
	ErrExtractionFailed       = errors.New("careerengine: extraction failed")
	ErrExtractionPending      = errors.New("careerengine: extraction still pending")
	ErrInvalidOverride        = errors.New("careerengine: invalid policy override")
	ErrVectorIndexUnavailable = errors.New("careerengine: vector index unavailable")
	ErrPersistenceFailed      = errors.New("careerengine: persistence failed")
)
