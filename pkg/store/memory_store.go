package store

import (
	"context"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	into "github.com/goliatone/go-into"
	"github.com/goliatone/go-into/pkg/activity"
)

// Option configures a MemoryStore.
type Option func(*MemoryStore)

// WithLogger sets the logger used for resolution diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(s *MemoryStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithEmitter announces created and rejected records through emitter.
func WithEmitter(emitter *activity.Emitter) Option {
	return func(s *MemoryStore) {
		s.emitter = emitter
	}
}

// WithIDGenerator replaces the UUID generator used for record ids.
func WithIDGenerator(next func() string) Option {
	return func(s *MemoryStore) {
		if next != nil {
			s.newID = next
		}
	}
}

// MemoryStore is an in-memory into.Inserter.
type MemoryStore struct {
	mu             sync.RWMutex
	configurations map[string]map[into.RecordType]struct{}
	records        map[recordKey]any

	logger  *zap.Logger
	emitter *activity.Emitter
	newID   func() string
}

var _ into.Inserter = (*MemoryStore)(nil)

func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		configurations: map[string]map[into.RecordType]struct{}{},
		records:        map[recordKey]any{},
		logger:         zap.NewNop(),
		newID:          uuid.NewString,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// AddConfiguration declares a configuration and the record types it holds.
// Calling it again for the same name adds types.
func (s *MemoryStore) AddConfiguration(name string, types ...into.RecordType) error {
	for _, rt := range types {
		if !rt.Resolved() {
			return errors.Newf("store: configuration %q: record type %s is not bound to a Go type", name, rt)
		}
		if rt.Type().Kind() == reflect.Interface {
			return errors.Newf("store: configuration %q: record type %s is an interface", name, rt)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	held, ok := s.configurations[name]
	if !ok {
		held = map[into.RecordType]struct{}{}
		s.configurations[name] = held
	}
	for _, rt := range types {
		held[rt] = struct{}{}
	}
	return nil
}

// Configurations returns the declared configuration names sorted.
func (s *MemoryStore) Configurations() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.configurations))
	for name := range s.configurations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Insert implements into.Inserter.
func (s *MemoryStore) Insert(ctx context.Context, rt into.RecordType, configuration string, inferStore bool) (any, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resolved, err := s.resolve(rt, configuration, inferStore)
	if err != nil {
		creationErr := into.NewCreationError(rt, configuration, inferStore, err)
		s.logger.Debug("record creation rejected",
			zap.Stringer("record_type", rt),
			zap.String("configuration", configuration),
			zap.Bool("infer_store", inferStore),
			zap.Error(err),
		)
		s.emit(ctx, activity.BuildRecordCreateFailedEvent(activity.RecordEventInput{
			RecordType:    rt.String(),
			Configuration: configuration,
			Inferred:      inferStore,
			Err:           err,
		}))
		return nil, creationErr
	}

	id := s.newID()
	record := instantiate(rt.Type())
	if identifiable, ok := record.(Identifiable); ok {
		identifiable.SetRecordID(id)
	}
	ref := Ref{Configuration: resolved, RecordType: rt, ID: id}
	identifier, err := ref.Identifier()
	if err != nil {
		return nil, into.NewCreationError(rt, configuration, inferStore, err)
	}

	s.mu.Lock()
	key := ref.key()
	if _, exists := s.records[key]; exists {
		s.mu.Unlock()
		return nil, into.NewCreationError(rt, configuration, inferStore,
			errors.Newf("store: record %s already exists", identifier))
	}
	s.records[key] = record
	s.mu.Unlock()

	s.logger.Debug("record created",
		zap.Stringer("record_type", rt),
		zap.String("configuration", resolved),
		zap.Bool("inferred", inferStore),
		zap.String("id", id),
	)
	s.emit(ctx, activity.BuildRecordCreatedEvent(activity.RecordEventInput{
		RecordType:    rt.String(),
		RecordID:      id,
		Configuration: resolved,
		Inferred:      inferStore,
	}))
	return record, nil
}

// Get returns the record stored under ref.
func (s *MemoryStore) Get(ref Ref) (any, bool) {
	if _, err := ref.Identifier(); err != nil {
		return nil, false
	}
	s.mu.RLock()
	record, ok := s.records[ref.key()]
	s.mu.RUnlock()
	return record, ok
}

// Count returns how many records were created in configuration.
func (s *MemoryStore) Count(configuration string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for key := range s.records {
		if key.configuration == configuration {
			count++
		}
	}
	return count
}

func (s *MemoryStore) resolve(rt into.RecordType, configuration string, inferStore bool) (string, error) {
	if !rt.Resolved() {
		return "", errors.WithHintf(
			errors.Wrapf(into.ErrUnknownRecordType, "record type %s", rt),
			"register %q with the type registry before creating it", rt.Name(),
		)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if !inferStore {
		held, ok := s.configurations[configuration]
		if !ok {
			return "", errors.WithHintf(
				errors.Wrapf(into.ErrUnknownConfiguration, "configuration %q", configuration),
				"declared configurations: %s", strings.Join(quoteAll(sortedKeys(s.configurations)), ", "),
			)
		}
		if _, ok := held[rt]; !ok {
			return "", errors.Wrapf(into.ErrUnknownRecordType, "configuration %q does not hold %s", configuration, rt)
		}
		return configuration, nil
	}

	var candidates []string
	for name, held := range s.configurations {
		if _, ok := held[rt]; ok {
			candidates = append(candidates, name)
		}
	}
	sort.Strings(candidates)

	switch len(candidates) {
	case 0:
		return "", errors.Wrapf(into.ErrUnknownRecordType, "no configuration holds %s", rt)
	case 1:
		return candidates[0], nil
	default:
		return "", errors.WithHintf(
			errors.Wrapf(into.ErrAmbiguousConfiguration, "%s is held by %d configurations", rt, len(candidates)),
			"name one of %s explicitly", strings.Join(quoteAll(candidates), ", "),
		)
	}
}

// emission failures are logged; they never change the insert result
func (s *MemoryStore) emit(ctx context.Context, event activity.Event) {
	if !s.emitter.Enabled() {
		return
	}
	if err := s.emitter.Emit(ctx, event); err != nil {
		s.logger.Warn("record activity emission failed", zap.String("verb", event.Verb), zap.Error(err))
	}
}

func instantiate(t reflect.Type) any {
	if t.Kind() == reflect.Pointer {
		return reflect.New(t.Elem()).Interface()
	}
	return reflect.New(t).Elem().Interface()
}

func sortedKeys(configurations map[string]map[into.RecordType]struct{}) []string {
	names := make([]string, 0, len(configurations))
	for name := range configurations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func quoteAll(names []string) []string {
	quoted := make([]string, len(names))
	for i, name := range names {
		quoted[i] = `"` + name + `"`
	}
	return quoted
}
