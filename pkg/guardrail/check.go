package guardrail

// Reason codes for rejections, stable across runs.
const (
	ReasonUnsafe       = "UNSAFE_CONTENT"
	ReasonPrivacy      = "PRIVACY_VIOLATION"
	ReasonQuality      = "QUALITY_BELOW_BAR"
	ReasonNotRelevant  = "NOT_RELEVANT"
)

// Rejection identifies which check failed and why. A nil *Rejection means the
// content passed every check.
type Rejection struct {
	Stage  string
	Code   string
	Detail string
}

// Check is one validation stage. Checks are pure functions of their inputs:
// same input, same verdict, no I/O.
type Check interface {
	Name() string
	// Evaluate returns nil to pass the content through.
	Evaluate(query, response string) *Rejection
}
