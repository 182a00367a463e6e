package batch

import (
	"context"
	"time"

	"igunfollow/pkg/ui"
)

// Unfollower defines the Instagram operation a batch needs
type Unfollower interface {
	Unfollow(ctx context.Context, username string) error
}

// Reporter receives the progress of a batch as it happens
type Reporter interface {
	Start(index, total int, username string)
	Result(err error, tracker *ui.StatusTracker)
	Waiting(d time.Duration)
	Done(success, failure int)
}
