package attempt

import (
	"github.com/ehving/noticesystem-sub000/internal/entity"
	"github.com/ehving/noticesystem-sub000/internal/sqlerr"
)

// StatusFor maps an apply error to the attempt status it should be logged
// with. Structural errors go straight to ERROR; transient and unknown
// errors stay retryable.
func StatusFor(err error) entity.AttemptStatus {
	if err == nil {
		return entity.AttemptSuccess
	}
	if sqlerr.Classify(err) == sqlerr.Structural {
		return entity.AttemptError
	}
	return entity.AttemptFailed
}
