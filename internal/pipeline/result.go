// Package pipeline starts the external candidate-audit workflow for an
// uploaded resume. It tries a list of strategies in order: a direct call to
// the workflow engine, then the trigger script under each configured
// interpreter. A strategy that cannot run reports NotAvailable and the next
// one is tried; the first Success or Failed ends the run.
package pipeline

import "fmt"

// Kind tags the outcome of one strategy attempt.
type Kind int

const (
	KindSuccess Kind = iota
	KindNotAvailable
	KindFailed
)

func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindNotAvailable:
		return "not_available"
	case KindFailed:
		return "failed"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Result is what a strategy reports back to the driver.
type Result struct {
	Kind        Kind
	ExecutionID string
	Link        string
	Message     string
	// Reason explains a NotAvailable result. Only logged.
	Reason error
}

func Success(executionID, link string) Result {
	return Result{Kind: KindSuccess, ExecutionID: executionID, Link: link}
}

func NotAvailable(reason error) Result {
	return Result{Kind: KindNotAvailable, Reason: reason}
}

// Failed ends the run with a sentinel execution id and the text that explains it.
func Failed(executionID, message string) Result {
	return Result{Kind: KindFailed, ExecutionID: executionID, Message: message}
}
