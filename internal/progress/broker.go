// Package progress tracks ingestion jobs and streams their snapshots to
// subscribers. Each job has its own broadcast channel set, created at
// submission and torn down a grace period after the job reaches a terminal
// state, keeping subscriber lifecycle explicit and bounded.
package progress

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"fattura/internal/domain"
)

// subscriberBuffer sizes each subscriber channel. A subscriber that stops
// draining loses intermediate snapshots, never the terminal one: Publish
// drops-oldest instead of blocking.
const subscriberBuffer = 16

type job struct {
	snapshot    domain.UploadSnapshot
	subscribers map[int]chan domain.UploadSnapshot
	nextSub     int
	expire      *time.Timer
}

// Broker maintains per-job progress state and fans snapshots out to zero or
// more subscribers. A late subscriber receives the current snapshot first,
// then live updates. All methods are safe for concurrent use.
type Broker struct {
	mu        sync.Mutex
	jobs      map[uuid.UUID]*job
	retention time.Duration
	log       zerolog.Logger
}

// NewBroker creates a broker that retains terminal jobs for the given grace
// period so slow or reconnecting subscribers can still observe the final
// snapshot.
func NewBroker(retention time.Duration, log zerolog.Logger) *Broker {
	return &Broker{
		jobs:      make(map[uuid.UUID]*job),
		retention: retention,
		log:       log.With().Str("component", "progress_broker").Logger(),
	}
}

// Register creates the tracking state for a new job.
func (b *Broker) Register(snapshot domain.UploadSnapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.jobs[snapshot.JobID] = &job{
		snapshot:    snapshot,
		subscribers: make(map[int]chan domain.UploadSnapshot),
	}
}

// Publish replaces the job's snapshot and delivers it to every subscriber.
// After a terminal snapshot all subscriber streams are closed and the job is
// scheduled for expiry.
func (b *Broker) Publish(snapshot domain.UploadSnapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()

	j, ok := b.jobs[snapshot.JobID]
	if !ok {
		return
	}
	j.snapshot = snapshot

	for _, ch := range j.subscribers {
		send(ch, snapshot)
	}

	if snapshot.Status.Terminal() {
		for id, ch := range j.subscribers {
			close(ch)
			delete(j.subscribers, id)
		}
		if j.expire == nil {
			jobID := snapshot.JobID
			j.expire = time.AfterFunc(b.retention, func() { b.expireJob(jobID) })
		}
	}
}

// Snapshot returns the job's current snapshot.
func (b *Broker) Snapshot(jobID uuid.UUID) (domain.UploadSnapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	j, ok := b.jobs[jobID]
	if !ok {
		return domain.UploadSnapshot{}, domain.ErrJobNotFound
	}
	return j.snapshot, nil
}

// Subscribe attaches to a job's snapshot stream. The current snapshot is
// delivered immediately; the stream closes after a terminal snapshot. The
// returned cancel function detaches the subscriber without affecting others.
func (b *Broker) Subscribe(jobID uuid.UUID) (<-chan domain.UploadSnapshot, func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	j, ok := b.jobs[jobID]
	if !ok {
		return nil, nil, domain.ErrJobNotFound
	}

	ch := make(chan domain.UploadSnapshot, subscriberBuffer)
	ch <- j.snapshot

	if j.snapshot.Status.Terminal() {
		// Reconnecting observer after completion: final snapshot only.
		close(ch)
		return ch, func() {}, nil
	}

	id := j.nextSub
	j.nextSub++
	j.subscribers[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if j, ok := b.jobs[jobID]; ok {
			if ch, ok := j.subscribers[id]; ok {
				delete(j.subscribers, id)
				close(ch)
			}
		}
	}
	return ch, cancel, nil
}

func (b *Broker) expireJob(jobID uuid.UUID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.jobs, jobID)
	b.log.Debug().Str("job_id", jobID.String()).Msg("job expired")
}

// send delivers without blocking, dropping the oldest buffered snapshot when
// the subscriber is slow.
func send(ch chan domain.UploadSnapshot, s domain.UploadSnapshot) {
	for {
		select {
		case ch <- s:
			return
		default:
			select {
			case <-ch:
			default:
			}
		}
	}
}
