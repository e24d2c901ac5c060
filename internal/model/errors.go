package model

import "errors"

var (
	// ErrMalformedLine line shape is wrong (field count, timestamp)
	ErrMalformedLine = errors.New("malformed accounting line")
	// ErrInvalidJobID the job id segment is not an integer
	ErrInvalidJobID = errors.New("invalid job id")
	// ErrInvalidValue a numeric, time or memory value could not be parsed
	ErrInvalidValue = errors.New("invalid value")
	// ErrLoadingFailure persistence did not return a generated id
	ErrLoadingFailure = errors.New("failed to load record")
	// ErrMissingDimension an activity row references an unresolved dimension
	ErrMissingDimension = errors.New("dimension not resolved")
	// ErrAggregation the aggregation run failed
	ErrAggregation = errors.New("aggregation failed")
)
