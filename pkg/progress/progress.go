// Package progress defines the human-readable events emitted while talking to the chain.
package progress

import "github.com/speedrun-hq/airdropper/pkg/logger"

// Kind is the presentation class of an event.
type Kind string

const (
	Info    Kind = "info"
	Success Kind = "success"
	Warning Kind = "warning"
	Error   Kind = "error"
)

// Event is a transient progress notification. It is published, never retained.
type Event struct {
	Kind    Kind   `json:"type"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Func receives progress events. A nil Func discards them.
type Func func(Event)

// Emit calls f if it is set.
func (f Func) Emit(kind Kind, message, details string) {
	if f == nil {
		return
	}
	f(Event{Kind: kind, Message: message, Details: details})
}

// ToLogger returns a Func that mirrors events to log.
func ToLogger(log logger.Logger, chainID int) Func {
	return func(e Event) {
		line := e.Message
		if e.Details != "" {
			line += " (" + e.Details + ")"
		}
		switch e.Kind {
		case Success:
			log.NoticeWithChain(chainID, "%s", line)
		case Warning:
			log.WarningWithChain(chainID, "%s", line)
		case Error:
			log.ErrorWithChain(chainID, "%s", line)
		default:
			log.InfoWithChain(chainID, "%s", line)
		}
	}
}

// Tee fans an event out to every non-nil Func.
func Tee(fs ...Func) Func {
	return func(e Event) {
		for _, f := range fs {
			if f != nil {
				f(e)
			}
		}
	}
}
