package cmd

const (
	// Success is the same as EXIT_SUCCESS in C
	Success = iota

	// BadArgs passed to cli; not our fault.
	BadArgs

	// BadConfiguration means the cipher shape, a mask or a tunable is invalid.
	BadConfiguration

	// SearchExhausted means no characteristic was above the bound.
	SearchExhausted

	// InsufficientSignal means too few pairs survived filtering.
	InsufficientSignal

	// KeyNotRecoverable means the first round protocol found no unique key.
	KeyNotRecoverable

	// Interrupted means the attack was canceled (e.g. by ctrl-c).
	Interrupted

	// UnknownError is an uncategorized error, probably our fault.
	UnknownError
)
