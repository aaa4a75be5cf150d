package media

import "errors"

var (
	// ErrProbeUnavailable indicates no duration prober is configured.
	ErrProbeUnavailable = errors.New("media prober unavailable")
	// ErrStorageUnavailable indicates no object storage is configured.
	ErrStorageUnavailable = errors.New("object storage unavailable")
	// ErrReaperClosed is returned when work is queued after Shutdown.
	ErrReaperClosed = errors.New("blob reaper closed")
)
