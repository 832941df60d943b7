package models

import "fmt"

// NetworkError represents a transport failure or a non-2xx API response
type NetworkError struct {
	Op         string
	URL        string
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s returned status %d", e.Op, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// ParseError represents a response body that is not JSON or has the wrong shape
type ParseError struct {
	Op  string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ValidationError represents datasets that do not line up interval for interval
type ValidationError struct {
	Dataset  string
	Expected int
	Got      int
}

func (e *ValidationError) Error() string {
	if e.Expected == 0 && e.Got == 0 {
		return fmt.Sprintf("%s: no readings in window", e.Dataset)
	}
	return fmt.Sprintf("%s: expected %d readings, got %d", e.Dataset, e.Expected, e.Got)
}
