package main

// MissingNameError indicates gen was called without a name outside random mode.
type MissingNameError struct{}

func (e MissingNameError) Error() string {
	return "a document name is required unless --random is set"
}
