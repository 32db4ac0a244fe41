package ledger

import "errors"

// Error kinds surfaced by ledger operations. Callers classify with errors.Is.
var (
	// ErrInvalidScore marks a malformed submission (score out of range).
	ErrInvalidScore = errors.New("invalid score")

	// ErrInvalidAnswers marks an answers payload rejected by the activity's schema.
	ErrInvalidAnswers = errors.New("invalid answers payload")

	// ErrUnknownActivity marks a submission referencing an unpublished activity.
	ErrUnknownActivity = errors.New("unknown activity")

	// ErrUnknownUser marks a submission for a user that is not a known student,
	// or an analytics request for an unknown teacher.
	ErrUnknownUser = errors.New("unknown user")

	// ErrNotFound marks a missing progress record on reads.
	ErrNotFound = errors.New("progress record not found")

	// ErrConflict marks a lost optimistic-concurrency race. Safe to retry.
	ErrConflict = errors.New("concurrent update conflict")

	// ErrStorage marks a transient storage failure. Safe to retry.
	ErrStorage = errors.New("storage failure")
)

// retryable reports whether the submission loop should retry after err.
func retryable(err error) bool {
	return errors.Is(err, ErrConflict) || errors.Is(err, ErrStorage)
}
