package constants

// Outcome is the terminal state of one processed document.
type Outcome string

// Stable values (used as metric labels and in API responses).
const (
	OutcomeSaved       Outcome = "SAVED"       // record appended to the CSV log
	OutcomeUnsupported Outcome = "UNSUPPORTED" // declared kind not accepted
	OutcomeNoText      Outcome = "NO_TEXT"     // acquisition produced no text
	OutcomeFailed      Outcome = "FAILED"      // unexpected failure, including CSV append
)
