package scheduler

import (
	"time"

	"github.com/robfig/cron/v3"

	"github.com/vfa-khuongdv/opsboard/internal/notification"
)

// Names of the scheduled jobs
const (
	JobPoll    = "poll"
	JobArchive = "archive"
)

// JobInfo contains information about a scheduled job
type JobInfo struct {
	Name     string       `json:"name"`
	Schedule string       `json:"schedule"`
	EntryID  cron.EntryID `json:"entry_id"`
	Next     time.Time    `json:"next"`
	Previous time.Time    `json:"previous"`
}

// PollResult summarizes one poll of the job listing
type PollResult struct {
	PolledAt   time.Time               `json:"polled_at"`
	Jobs       int                     `json:"jobs"`
	Failures   []notification.JobEvent `json:"failures,omitempty"`
	Recoveries []notification.JobEvent `json:"recoveries,omitempty"`
	Pruned     int64                   `json:"pruned"`
}
