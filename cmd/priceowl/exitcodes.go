package main

// Exit codes for the priceowl CLI.
const (
	ExitOK           = 0 // Comparison completed.
	ExitInvalidArgs  = 1 // Invalid arguments or flags.
	ExitInvalidInput = 2 // Nothing to compare (empty input, too few sources).
	ExitFailure      = 3 // Run failed, no output produced.
)
