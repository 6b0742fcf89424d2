package errors

import "errors"

var (
	ErrRoomNotFound       = errors.New("room not found")
	ErrSnapshotNotFound   = errors.New("snapshot not found")
	ErrMalformedSnapshot  = errors.New("malformed snapshot")
	ErrPublishFailed      = errors.New("publish failed")
	ErrSubscribeFailed    = errors.New("subscribe failed")
	ErrArchiveFailed      = errors.New("archive game failed")
	ErrArchiveUnavailable = errors.New("archive is disabled")
	ErrInternal           = errors.New("internal error")
)

// ConnectionNotice is shown to players when the store cannot be reached.
const ConnectionNotice = "connection problem, please reload"
