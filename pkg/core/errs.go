package core

import "errors"

var (
	ErrUnknownMetric    = errors.New("unknown metric")
	ErrLoadInFlight     = errors.New("metrics load already in flight")
	ErrNoDuration       = errors.New("duration not known yet")
	ErrSnapshotNotFound = errors.New("snapshot not found")
	ErrNegativeValue    = errors.New("negative value")
)
