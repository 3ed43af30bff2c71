package streams

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"dixonq/domain/core"
	"dixonq/domain/dixon"
	"dixonq/internal/errors"
	"dixonq/ports"
)

// Settings configures the classifier behind one stream
type Settings struct {
	Capacity int                   `json:"capacity"`
	Level    dixon.ConfidenceLevel `json:"confidence_level"`
	Policy   dixon.WindowPolicy    `json:"policy"`
}

func (s Settings) newClassifier() (*dixon.Classifier, error) {
	policy := s.Policy
	if policy == "" {
		policy = dixon.PolicyBatch
	}
	return dixon.NewClassifier(s.Capacity, s.Level, dixon.WithPolicy(policy))
}

// StreamInfo is a point-in-time view of one stream
type StreamInfo struct {
	ID          core.StreamID `json:"id"`
	Settings    Settings      `json:"settings"`
	Critical    float64       `json:"critical_value"`
	Buffered    int           `json:"buffered"`
	Window      []float64     `json:"window"`
	Ingested    int           `json:"ingested"`
	Evaluations int           `json:"evaluations"`
	CreatedAt   time.Time     `json:"created_at"`
}

// stream pairs a classifier with the lock that makes ingest-then-evaluate atomic
type stream struct {
	mu          sync.Mutex
	id          core.StreamID
	classifier  *dixon.Classifier
	ingested    int
	evaluations int
	createdAt   time.Time
	closed      bool // set by Close; callers that fetched the stream earlier see NotFound
}

func (s *stream) info() StreamInfo {
	c := s.classifier
	return StreamInfo{
		ID: s.id,
		Settings: Settings{
			Capacity: c.Capacity(),
			Level:    c.Level(),
			Policy:   c.Policy(),
		},
		Critical:    c.Critical(),
		Buffered:    c.Len(),
		Window:      c.Window(),
		Ingested:    s.ingested,
		Evaluations: s.evaluations,
		CreatedAt:   s.createdAt,
	}
}

// Option customises a Registry
type Option func(*Registry)

// WithMaxStreams caps the number of open streams; 0 leaves it unbounded
func WithMaxStreams(n int) Option {
	return func(r *Registry) {
		r.maxStreams = n
	}
}

// WithRecorder persists every evaluation to repo
func WithRecorder(repo ports.EvaluationRepository) Option {
	return func(r *Registry) {
		r.recorder = repo
	}
}

// Registry holds one independent classifier per stream. Calls on the same
// stream are serialized; different streams proceed in parallel.
type Registry struct {
	mu         sync.RWMutex
	defaults   Settings
	maxStreams int
	recorder   ports.EvaluationRepository
	streams    map[core.StreamID]*stream
}

// NewRegistry creates a registry whose lazily opened streams use defaults
func NewRegistry(defaults Settings, opts ...Option) (*Registry, error) {
	if _, err := defaults.newClassifier(); err != nil {
		return nil, errors.Wrap(err, "invalid default stream settings")
	}
	r := &Registry{
		defaults: defaults,
		streams:  make(map[core.StreamID]*stream),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Defaults returns the settings applied to lazily opened streams
func (r *Registry) Defaults() Settings {
	return r.defaults
}

// Open creates a stream with explicit settings. Opening an existing stream
// is a conflict.
func (r *Registry) Open(id core.StreamID, settings Settings) (StreamInfo, error) {
	classifier, err := settings.newClassifier()
	if err != nil {
		return StreamInfo{}, errors.Wrapf(err, "cannot open stream %s", id)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.streams[id]; exists {
		return StreamInfo{}, errors.Conflict(fmt.Sprintf("stream %s already exists", id))
	}
	s, err := r.addLocked(id, classifier)
	if err != nil {
		return StreamInfo{}, err
	}
	return s.info(), nil
}

// Ingest feeds one value to the stream, opening it with the default
// settings if needed. It returns nil until the stream's window completes.
func (r *Registry) Ingest(ctx context.Context, id core.StreamID, value float64) (*dixon.Evaluation, error) {
	evals, err := r.IngestBatch(ctx, id, []float64{value})
	if err != nil || len(evals) == 0 {
		return nil, err
	}
	return evals[0], nil
}

// IngestBatch feeds values in order under a single stream lock and returns
// every evaluation they produced. On a rejected value it stops and returns
// the evaluations produced so far together with the error.
func (r *Registry) IngestBatch(ctx context.Context, id core.StreamID, values []float64) ([]*dixon.Evaluation, error) {
	s, err := r.getOrOpen(id)
	if err != nil {
		return nil, err
	}
	return r.ingest(ctx, s, values)
}

func (r *Registry) ingest(ctx context.Context, s *stream, values []float64) ([]*dixon.Evaluation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, errors.NotFound(fmt.Sprintf("stream %s", s.id))
	}

	id := s.id
	var evals []*dixon.Evaluation
	for i, v := range values {
		if err := ctx.Err(); err != nil {
			return evals, err
		}
		eval, err := s.classifier.Ingest(v)
		if err != nil {
			return evals, errors.Wrapf(err, "stream %s rejected value %d", id, i)
		}
		s.ingested++
		if eval == nil {
			continue
		}
		s.evaluations++
		evals = append(evals, eval)
		r.record(ctx, id, eval)
	}
	return evals, nil
}

func (r *Registry) record(ctx context.Context, id core.StreamID, eval *dixon.Evaluation) {
	if r.recorder == nil {
		return
	}
	if err := r.recorder.Save(ctx, id, eval); err != nil {
		log.Printf("[Registry] failed to record evaluation %s for stream %s: %v", eval.ID, id, err)
	}
}

// Snapshot returns the current state of a stream
func (r *Registry) Snapshot(id core.StreamID) (StreamInfo, error) {
	s, err := r.get(id)
	if err != nil {
		return StreamInfo{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return StreamInfo{}, errors.NotFound(fmt.Sprintf("stream %s", id))
	}
	return s.info(), nil
}

// Reset empties a stream's window without closing it
func (r *Registry) Reset(id core.StreamID) error {
	s, err := r.get(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.NotFound(fmt.Sprintf("stream %s", id))
	}
	s.classifier.Reset()
	return nil
}

// Close removes a stream and its buffered samples. A batch already running
// on the stream finishes first; later calls holding the stream get NotFound.
func (r *Registry) Close(id core.StreamID) error {
	r.mu.Lock()
	s, ok := r.streams[id]
	if !ok {
		r.mu.Unlock()
		return errors.NotFound(fmt.Sprintf("stream %s", id))
	}
	delete(r.streams, id)
	r.mu.Unlock()

	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	log.Printf("[Registry] closed stream %s", id)
	return nil
}

// Streams lists all open streams ordered by ID
func (r *Registry) Streams() []StreamInfo {
	r.mu.RLock()
	list := make([]*stream, 0, len(r.streams))
	for _, s := range r.streams {
		list = append(list, s)
	}
	r.mu.RUnlock()

	infos := make([]StreamInfo, 0, len(list))
	for _, s := range list {
		s.mu.Lock()
		infos = append(infos, s.info())
		s.mu.Unlock()
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].ID < infos[j].ID
	})
	return infos
}

func (r *Registry) get(id core.StreamID) (*stream, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.streams[id]
	if !ok {
		return nil, errors.NotFound(fmt.Sprintf("stream %s", id))
	}
	return s, nil
}

func (r *Registry) getOrOpen(id core.StreamID) (*stream, error) {
	r.mu.RLock()
	s, ok := r.streams[id]
	r.mu.RUnlock()
	if ok {
		return s, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// another caller may have opened it between the two locks
	if s, ok := r.streams[id]; ok {
		return s, nil
	}
	classifier, err := r.defaults.newClassifier()
	if err != nil {
		return nil, errors.Wrap(err, "invalid default stream settings")
	}
	return r.addLocked(id, classifier)
}

func (r *Registry) addLocked(id core.StreamID, classifier *dixon.Classifier) (*stream, error) {
	if r.maxStreams > 0 && len(r.streams) >= r.maxStreams {
		return nil, errors.Conflict(fmt.Sprintf("stream limit %d reached", r.maxStreams))
	}
	s := &stream{
		id:         id,
		classifier: classifier,
		createdAt:  time.Now().UTC(),
	}
	r.streams[id] = s
	log.Printf("[Registry] opened stream %s (capacity=%d level=%s policy=%s)",
		id, classifier.Capacity(), classifier.Level(), classifier.Policy())
	return s, nil
}
