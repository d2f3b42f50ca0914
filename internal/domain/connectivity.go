package domain

// FailureClass categorizes why a backend probe or submission failed.
type FailureClass string

const (
	FailureClassOK      FailureClass = "ok"
	FailureClassSSL     FailureClass = "sslError"
	FailureClassCORS    FailureClass = "corsError"
	FailureClassNetwork FailureClass = "networkError"
)

// ConnectivityResult is the outcome of one backend probe. Produced fresh per
// probe and never persisted.
type ConnectivityResult struct {
	Reachable      bool         `json:"reachable"`
	Classification FailureClass `json:"classification"`
	StrategyUsed   string       `json:"strategyUsed"`
	Detail         string       `json:"detail,omitempty"`
}
