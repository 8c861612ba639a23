package executor

import "time"

// Progress is a derived snapshot of a batch, recomputed after every settle
// event. It is never stored: the per-status counts always sum to Total.
type Progress struct {
	Total     int
	Pending   int
	Running   int
	Completed int
	Failed    int
	Retrying  int

	Percent    float64       // Completed / Total
	Elapsed    time.Duration // Since the batch started
	Throughput float64       // Completed tasks per elapsed second
	Remaining  time.Duration // ETA at current throughput; zero throughput reports zero, never infinite
}

// snapshot derives Progress from the task records. Called only from the
// scheduler goroutine, which is the single writer of those records.
func snapshot[I, R any](tasks []*Task[I, R], start time.Time) Progress {
	p := Progress{Total: len(tasks), Elapsed: time.Since(start)}

	for _, t := range tasks {
		switch t.Status {
		case StatusPending:
			p.Pending++
		case StatusRunning:
			p.Running++
		case StatusCompleted:
			p.Completed++
		case StatusFailed:
			p.Failed++
		case StatusRetrying:
			p.Retrying++
		}
	}

	if p.Total > 0 {
		p.Percent = float64(p.Completed) / float64(p.Total)
	}

	if secs := p.Elapsed.Seconds(); secs > 0 {
		p.Throughput = float64(p.Completed) / secs
	}
	if p.Throughput > 0 {
		remaining := float64(p.Total-p.Completed) / p.Throughput
		p.Remaining = time.Duration(remaining * float64(time.Second))
	}

	return p
}
