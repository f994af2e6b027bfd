package ir

// Version constants for the compiled program format.
const (
	// IRVersion is the instruction and plan format version. It
	// participates in right-hand-side identity hashing, so a format
	// change invalidates cached specializations.
	IRVersion = "1"
)
