package extract

// ExtractionError reports that a document could not be read or produced no
// usable record.
type ExtractionError struct {
	Reason string
	Err    error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return "extraction failed: " + e.Reason + ": " + e.Err.Error()
	}
	return "extraction failed: " + e.Reason
}

func (e *ExtractionError) Unwrap() error { return e.Err }
