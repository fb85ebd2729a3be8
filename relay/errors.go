package relay

import "errors"

// ErrAlreadyCommitted is returned by Commit when a ReplyHandle has already
// fired, either by an earlier Commit or by Release.
var ErrAlreadyCommitted = errors.New("relay: reply already committed")

// ErrStreamClosed is returned by StreamHandle.Next and More once a stream
// has already finished or been released. CancelPull, like Release, returns
// nil in that case.
var ErrStreamClosed = errors.New("relay: stream already closed")
