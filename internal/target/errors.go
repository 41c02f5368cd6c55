package target

import "errors"

// InjectionError reports that the capture capability could not be installed.
type InjectionError struct {
	Err error
}

func (e *InjectionError) Error() string {
	if e.Err == nil {
		return "failed to inject content script"
	}
	return "failed to inject content script: " + e.Err.Error()
}

func (e *InjectionError) Unwrap() error { return e.Err }

// ErrNotInstalled is returned by Ping when the capability is absent.
var ErrNotInstalled = errors.New("capture script not installed")
