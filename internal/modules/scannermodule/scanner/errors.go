package scanner

import (
	"errors"

	"chorus/internal/scanerrors"
)

var (
	// ErrOrganizeMoveFailed wraps failures while relocating an imported file
	// into the canonical library layout
	ErrOrganizeMoveFailed = scanerrors.ErrOrganizeMoveFailed

	// ErrWatcherRunning is returned when a watch start request arrives while
	// the inbox watcher is already active
	ErrWatcherRunning = errors.New("inbox watcher already running")

	// ErrWatcherNotRunning is returned when a watch stop request arrives with
	// no active inbox watcher
	ErrWatcherNotRunning = errors.New("inbox watcher is not running")
)
