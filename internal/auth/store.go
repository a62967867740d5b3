package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"
)

// ErrStoreClosed is returned by Wait once the store has been closed.
var ErrStoreClosed = errors.New("auth: store closed")

// Phase is the lifecycle position of the auth state.
type Phase int

const (
	// PhaseUninitialized means no session check has ever started.
	PhaseUninitialized Phase = iota
	// PhaseLoading means a check is outstanding.
	PhaseLoading
	// PhaseResolved means User reflects the latest completed check.
	PhaseResolved
)

func (p Phase) String() string {
	switch p {
	case PhaseUninitialized:
		return "uninitialized"
	case PhaseLoading:
		return "loading"
	case PhaseResolved:
		return "resolved"
	default:
		return "unknown"
	}
}

// Snapshot is an immutable view of the auth state.
type Snapshot struct {
	User       *Principal
	Phase      Phase
	Generation uint64
}

// SessionLoading returns the three-valued loading signal. known is false
// before the first check.
func (s Snapshot) SessionLoading() (loading bool, known bool) {
	switch s.Phase {
	case PhaseLoading:
		return true, true
	case PhaseResolved:
		return false, true
	default:
		return false, false
	}
}

// Authenticated reports a resolved state with a principal.
func (s Snapshot) Authenticated() bool {
	return s.Phase == PhaseResolved && s.User != nil
}

// Listener observes every state transition, in order.
type Listener func(Snapshot)

// StoreOptions configures a Store.
type StoreOptions struct {
	CheckTimeout time.Duration
	Logger       *slog.Logger
	Recorder     Recorder
}

// Store owns the process-wide auth state. It is mutated only by fetches it
// starts itself; consumers read snapshots and call Invalidate.
type Store struct {
	checker  Checker
	timeout  time.Duration
	logger   *slog.Logger
	recorder Recorder

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu          sync.Mutex
	phase       Phase
	user        *Principal
	generation  uint64
	inflight    bool
	closed      bool
	settled     chan struct{}
	listeners   map[uint64]Listener
	nextID      uint64
	queue       []Snapshot
	dispatching bool
}

// NewStore constructs a Store in PhaseUninitialized. No fetch starts until
// the first Read, Subscribe, Wait or Invalidate.
func NewStore(checker Checker, opts StoreOptions) *Store {
	timeout := opts.CheckTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Store{
		checker:   checker,
		timeout:   timeout,
		logger:    logger,
		recorder:  recorderOrNop(opts.Recorder),
		ctx:       ctx,
		cancel:    cancel,
		settled:   make(chan struct{}),
		listeners: make(map[uint64]Listener),
	}
}

// Peek returns the current snapshot without side effects.
func (s *Store) Peek() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Read returns the current snapshot, starting the first check if none ran yet.
func (s *Store) Read() Snapshot {
	return s.trigger(false)
}

// Invalidate marks the state stale. The state resolves again from a check
// that starts at or after this call.
func (s *Store) Invalidate() {
	s.trigger(true)
}

// Subscribe registers l for all future transitions and starts the first
// check if none ran yet.
func (s *Store) Subscribe(l Listener) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	s.mu.Unlock()

	s.trigger(false)

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

// Wait blocks until the state is resolved.
func (s *Store) Wait(ctx context.Context) (Snapshot, error) {
	s.trigger(false)
	for {
		s.mu.Lock()
		snap := s.snapshotLocked()
		if snap.Phase == PhaseResolved {
			s.mu.Unlock()
			return snap, nil
		}
		if s.closed {
			s.mu.Unlock()
			return snap, ErrStoreClosed
		}
		settled := s.settled
		s.mu.Unlock()

		select {
		case <-settled:
		case <-ctx.Done():
			return s.Peek(), ctx.Err()
		case <-s.ctx.Done():
			return s.Peek(), ErrStoreClosed
		}
	}
}

// Close stops the store. Outstanding checks are abandoned.
func (s *Store) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()
	s.cancel()
	s.wg.Wait()
}

// trigger moves the state to loading and starts a check unless one is in
// flight. Without force it only acts on an uninitialized store.
func (s *Store) trigger(force bool) Snapshot {
	s.mu.Lock()
	if s.closed || (!force && s.phase != PhaseUninitialized) {
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return snap
	}

	s.generation++
	if s.phase == PhaseResolved {
		s.settled = make(chan struct{})
	}
	changed := s.phase != PhaseLoading
	s.phase = PhaseLoading

	start := !s.inflight
	token := s.generation
	if start {
		s.inflight = true
		s.wg.Add(1)
	}
	snap := s.snapshotLocked()
	drain := false
	if changed {
		drain = s.publishLocked(snap)
	}
	s.mu.Unlock()

	if start {
		go func() {
			pending := s.run(token)
			s.wg.Done()
			// Listeners run after Done so that one calling Close cannot
			// wait on its own goroutine.
			if pending {
				s.dispatch()
			}
		}()
	}
	if drain {
		s.dispatch()
	}
	return snap
}

// run performs checks until one finishes for the current generation. Checks
// finishing for an older generation are discarded and replaced by exactly
// one check for the latest generation. It reports whether the caller must
// drain the listener queue.
func (s *Store) run(token uint64) bool {
	for {
		ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
		principal := s.checker.Check(ctx)
		cancel()

		s.mu.Lock()
		if s.closed {
			s.inflight = false
			s.mu.Unlock()
			return false
		}
		if token != s.generation {
			s.logger.Debug("discard superseded session check",
				slog.Uint64("token", token),
				slog.Uint64("generation", s.generation),
			)
			token = s.generation
			s.mu.Unlock()
			s.recorder.AuthFetch(FetchDiscarded)
			continue
		}

		s.user = principal
		s.phase = PhaseResolved
		s.inflight = false
		close(s.settled)
		snap := s.snapshotLocked()
		drain := s.publishLocked(snap)
		s.mu.Unlock()

		s.recorder.AuthFetch(FetchApplied)
		return drain
	}
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{User: s.user, Phase: s.phase, Generation: s.generation}
}

// publishLocked queues snap for listeners. It reports whether the caller
// must drain the queue.
func (s *Store) publishLocked(snap Snapshot) bool {
	if len(s.listeners) == 0 {
		return false
	}
	s.queue = append(s.queue, snap)
	if s.dispatching {
		return false
	}
	s.dispatching = true
	return true
}

// dispatch delivers queued snapshots outside the lock. Listeners may call
// back into the store.
func (s *Store) dispatch() {
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.dispatching = false
			s.mu.Unlock()
			return
		}
		snap := s.queue[0]
		s.queue = s.queue[1:]
		listeners := make([]Listener, 0, len(s.listeners))
		for _, l := range s.listeners {
			listeners = append(listeners, l)
		}
		s.mu.Unlock()

		for _, l := range listeners {
			l(snap)
		}
	}
}
