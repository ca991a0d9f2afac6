// Package trigger enumerates the contexts under which the application
// engine may invoke a contract or native contract hook (spec §4.2).
package trigger

// Type identifies why the application engine is executing a script.
type Type byte

const (
	// OnPersist runs once per block before any transaction, letting
	// native contracts apply block-level state transitions (e.g. GAS
	// distribution) ahead of transaction processing.
	OnPersist Type = 0x01
	// PostPersist runs once per block after every transaction has been
	// applied, for native contracts that need a final pass (e.g. NEO
	// committee reward settlement).
	PostPersist Type = 0x02
	// Verification runs a transaction signer's or witness's
	// verification script to decide whether a witness is valid.
	Verification Type = 0x20
	// Application runs a transaction's entry script, the common case for
	// contract invocation.
	Application Type = 0x40

	All = OnPersist | PostPersist | Verification | Application
)

// String implements fmt.Stringer.
func (t Type) String() string {
	switch t {
	case OnPersist:
		return "OnPersist"
	case PostPersist:
		return "PostPersist"
	case Verification:
		return "Verification"
	case Application:
		return "Application"
	default:
		return "Unknown"
	}
}
