package store_test

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"

	crdberrors "github.com/cockroachdb/errors"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	into "github.com/goliatone/go-into"
	"github.com/goliatone/go-into/pkg/activity"
	"github.com/goliatone/go-into/pkg/store"
)

type person struct {
	ID   string
	Name string
}

func (p *person) SetRecordID(id string) { p.ID = id }

type invoice struct {
	Total int
}

type animal interface {
	Sound() string
}

type dog struct{}

func (*dog) Sound() string { return "woof" }

func sequentialIDs() func() string {
	next := 0
	return func() string {
		next++
		return fmt.Sprintf("id-%d", next)
	}
}

func newTestStore(t *testing.T, opts ...store.Option) *store.MemoryStore {
	t.Helper()
	s := store.NewMemoryStore(append([]store.Option{store.WithIDGenerator(sequentialIDs())}, opts...)...)
	require.NoError(t, s.AddConfiguration("Local", into.TypeOf[*person](), into.TypeOf[*dog]()))
	require.NoError(t, s.AddConfiguration("Remote", into.TypeOf[*person]()))
	require.NoError(t, s.AddConfiguration(store.DefaultConfiguration, into.TypeOf[invoice]()))
	return s
}

func TestCreateExplicitConfiguration(t *testing.T) {
	s := newTestStore(t)

	p, err := into.Create(context.Background(), s, into.In[*person]("Remote"))
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "id-1", p.ID)

	stored, ok := s.Get(store.Ref{Configuration: "Remote", RecordType: into.TypeOf[*person](), ID: "id-1"})
	require.True(t, ok)
	assert.Same(t, p, stored)
	assert.Equal(t, 1, s.Count("Remote"))
	assert.Equal(t, 0, s.Count("Local"))
}

func TestCreateDefaultConfigurationIsExplicit(t *testing.T) {
	s := newTestStore(t)

	inv, err := into.Create(context.Background(), s, into.In[invoice](store.DefaultConfiguration))
	require.NoError(t, err)
	assert.Equal(t, invoice{}, inv)
	assert.Equal(t, 1, s.Count(store.DefaultConfiguration))

	_, err = into.Create(context.Background(), s, into.In[*person](store.DefaultConfiguration))
	require.Error(t, err)
	assert.ErrorIs(t, err, into.ErrUnknownRecordType)
}

func TestCreateInfersSingleConfiguration(t *testing.T) {
	s := newTestStore(t)

	d, err := into.Create(context.Background(), s, into.New[*dog]())
	require.NoError(t, err)
	assert.Equal(t, "woof", d.Sound())
	assert.Equal(t, 1, s.Count("Local"))
}

func TestCreateInferenceFailures(t *testing.T) {
	s := newTestStore(t)

	cases := []struct {
		name   string
		create func() error
		want   error
	}{
		{
			name: "ambiguous",
			create: func() error {
				_, err := into.Create(context.Background(), s, into.New[*person]())
				return err
			},
			want: into.ErrAmbiguousConfiguration,
		},
		{
			name: "held nowhere",
			create: func() error {
				_, err := into.Create(context.Background(), s, into.New[*invoice]())
				return err
			},
			want: into.ErrUnknownRecordType,
		},
		{
			name: "unknown configuration",
			create: func() error {
				_, err := into.Create(context.Background(), s, into.In[*person]("Archive"))
				return err
			},
			want: into.ErrUnknownConfiguration,
		},
		{
			name: "unresolved record type",
			create: func() error {
				_, err := into.CreateClause(context.Background(), s, into.MakeClause(into.NamedRecordType("Ghost"), nil))
				return err
			},
			want: into.ErrUnknownRecordType,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.create()
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.want)

			var creationErr *into.CreationError
			require.ErrorAs(t, err, &creationErr)
		})
	}
	assert.Equal(t, 0, s.Count("Local")+s.Count("Remote")+s.Count(store.DefaultConfiguration))
}

func TestAmbiguousConfigurationHintListsCandidates(t *testing.T) {
	s := newTestStore(t)

	_, err := into.Create(context.Background(), s, into.New[*person]())
	require.Error(t, err)
	assert.Contains(t, crdberrors.FlattenHints(err), `"Local", "Remote"`)
}

func TestCreateThroughInterfaceClause(t *testing.T) {
	s := newTestStore(t)

	a, err := into.Create(context.Background(), s, into.ForTypeIn[animal](into.TypeOf[*dog](), "Local"))
	require.NoError(t, err)
	assert.Equal(t, "woof", a.Sound())

	_, err = into.Create(context.Background(), s, into.ForTypeIn[animal](into.TypeOf[*person](), "Local"))
	assert.ErrorIs(t, err, into.ErrRecordTypeMismatch)
}

func TestAddConfigurationRejectsUnusableTypes(t *testing.T) {
	s := store.NewMemoryStore()

	assert.Error(t, s.AddConfiguration("Local", into.NamedRecordType("Person")))
	assert.Error(t, s.AddConfiguration("Local", into.TypeOf[animal]()))
	assert.Empty(t, s.Configurations())
}

func TestInsertHonoursCancelledContext(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := into.Create(ctx, s, into.In[*person]("Local"))
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestInsertEmitsActivity(t *testing.T) {
	capture := &activity.CaptureHook{}
	emitter := activity.NewEmitter(activity.Hooks{capture}, activity.Config{Enabled: true})
	s := newTestStore(t, store.WithEmitter(emitter))

	_, err := into.Create(context.Background(), s, into.New[*dog]())
	require.NoError(t, err)
	_, err = into.Create(context.Background(), s, into.New[*person]())
	require.Error(t, err)

	want := []activity.Event{
		{
			Verb:          activity.VerbRecordCreated,
			ObjectType:    into.TypeOf[*dog]().String(),
			ObjectID:      "id-1",
			Configuration: "Local",
			Inferred:      true,
			Channel:       activity.DefaultChannel,
			Metadata:      map[string]any{"configuration_inferred": true},
		},
		{
			Verb:       activity.VerbRecordCreateFailed,
			ObjectType: into.TypeOf[*person]().String(),
			ObjectID:   into.TypeOf[*person]().String(),
			Inferred:   true,
			Channel:    activity.DefaultChannel,
			Metadata:   map[string]any{"configuration_inferred": true},
		},
	}
	opts := cmp.Options{
		cmpopts.IgnoreFields(activity.Event{}, "OccurredAt"),
		cmpopts.IgnoreMapEntries(func(key string, _ any) bool { return key == "error" }),
		cmpopts.EquateEmpty(),
	}
	if diff := cmp.Diff(want, capture.Events, opts); diff != "" {
		t.Fatalf("unexpected events (-want +got):\n%s", diff)
	}
	assert.Contains(t, capture.Events[1].Metadata["error"], "ambiguous configuration")
}

func TestInsertLogsResolution(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	s := newTestStore(t, store.WithLogger(zap.New(core)))

	_, err := into.Create(context.Background(), s, into.In[*person]("Local"))
	require.NoError(t, err)
	_, err = into.Create(context.Background(), s, into.In[*person]("Archive"))
	require.Error(t, err)

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "record created", entries[0].Message)
	assert.Equal(t, "Local", entries[0].ContextMap()["configuration"])
	assert.Equal(t, "record creation rejected", entries[1].Message)
}

func TestRefIdentifier(t *testing.T) {
	id, err := store.Ref{Configuration: "Local", RecordType: into.TypeOf[*person](), ID: "1"}.Identifier()
	require.NoError(t, err)
	assert.Equal(t, "config:Local/*store_test.person/1", id)

	id, err = store.Ref{RecordType: into.TypeOf[invoice](), ID: "2"}.Identifier()
	require.NoError(t, err)
	assert.Equal(t, "default/store_test.invoice/2", id)

	_, err = store.Ref{RecordType: into.NamedRecordType("Person"), ID: "3"}.Identifier()
	assert.Error(t, err)
	_, err = store.Ref{RecordType: into.TypeOf[invoice]()}.Identifier()
	assert.Error(t, err)
}

func TestInsertKeepsSameNamedTypesApart(t *testing.T) {
	first := func() into.RecordType {
		type twin struct{ N int }
		return into.TypeOf[*twin]()
	}()
	second := func() into.RecordType {
		type twin struct{ S string }
		return into.TypeOf[*twin]()
	}()
	require.Equal(t, first.Name(), second.Name())
	require.False(t, first.Equal(second))

	s := store.NewMemoryStore(store.WithIDGenerator(func() string { return "fixed" }))
	require.NoError(t, s.AddConfiguration("Local", first, second))
	local := "Local"

	_, err := into.CreateClause(context.Background(), s, into.MakeClause(first, &local))
	require.NoError(t, err)
	_, err = into.CreateClause(context.Background(), s, into.MakeClause(second, &local))
	require.NoError(t, err)
	assert.Equal(t, 2, s.Count("Local"))

	stored, ok := s.Get(store.Ref{Configuration: "Local", RecordType: first, ID: "fixed"})
	require.True(t, ok)
	assert.Equal(t, first.Type(), reflect.TypeOf(stored))

	_, err = into.CreateClause(context.Background(), s, into.MakeClause(first, &local))
	require.Error(t, err)
	var creationErr *into.CreationError
	assert.ErrorAs(t, err, &creationErr)
	assert.Equal(t, 2, s.Count("Local"), "an existing record must not be replaced")
}
