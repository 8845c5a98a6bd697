package binance

import "fmt"

// StatusError reports a non-2xx response from the exchange. The body is kept
// verbatim so callers can log it before shutting down.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("binance: http status %d: %s", e.Code, e.Body)
}
