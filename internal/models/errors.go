package models

import "errors"

// Input-error sentinels for the external collaborators defined in spec §6:
// "not ready" conditions surfaced by the resume/job stores, not faults.
// Kept in models (a leaf package with no internal dependencies) so both
// internal/careerengine and internal/database can reference the same
// values without a dependency cycle between them.
var (
	ErrNoDefaultResume = errors.New("careerengine: no default resume for user")
	ErrJobNotFound     = errors.New("careerengine: job not found")
	ErrResumeMissing   = errors.New("careerengine: resume has no raw text")
)
