package model

import "errors"

var (
	// ErrConfiguration marks invalid appender configuration. An appender
	// failing with it does not start.
	ErrConfiguration = errors.New("configuration error")

	// ErrTransformation marks an event that could not be normalized.
	ErrTransformation = errors.New("transformation error")

	// ErrDelivery marks a failed send to a sink. The affected items are lost.
	ErrDelivery = errors.New("delivery error")

	// ErrShutdownTimeout is returned when outstanding work did not finish
	// within the close timeout.
	ErrShutdownTimeout = errors.New("shutdown timeout")
)
