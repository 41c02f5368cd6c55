package reply

// MalformedResponseError means no strategy found a JSON value in the reply.
// Excerpt holds a bounded prefix of the reply, never the whole text.
type MalformedResponseError struct {
	Excerpt string
}

func (e *MalformedResponseError) Error() string {
	return "failed to parse analysis result, model returned: " + e.Excerpt + "..."
}

// ValidationError means the recovered JSON is not a usable result object.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid analysis result: " + e.Reason
}
