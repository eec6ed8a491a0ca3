package usersink_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goliatone/go-into/pkg/activity"
	"github.com/goliatone/go-into/pkg/activity/usersink"
	usertypes "github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"
)

type recordingSink struct {
	records []usertypes.ActivityRecord
	err     error
}

func (s *recordingSink) Log(_ context.Context, record usertypes.ActivityRecord) error {
	s.records = append(s.records, record)
	return s.err
}

func TestHookNotifyMapsEvent(t *testing.T) {
	sink := &recordingSink{}
	hook := usersink.Hook{Sink: sink}

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	actorID := uuid.New()
	tenantID := uuid.New()
	recordID := uuid.New().String()

	event := activity.BuildRecordCreatedEvent(activity.RecordEventInput{
		ActorID:       actorID.String(),
		TenantID:      tenantID.String(),
		RecordType:    "store_test.person",
		RecordID:      recordID,
		Configuration: "Remote",
		Channel:       "records",
		Metadata:      map[string]any{"source": "script"},
		OccurredAt:    now,
	})

	if err := hook.Notify(context.Background(), event); err != nil {
		t.Fatalf("notify: %v", err)
	}

	if len(sink.records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(sink.records))
	}
	record := sink.records[0]
	if record.ActorID != actorID {
		t.Fatalf("expected actor %s got %s", actorID, record.ActorID)
	}
	if record.UserID != uuid.Nil {
		t.Fatalf("expected nil user id got %s", record.UserID)
	}
	if record.TenantID != tenantID {
		t.Fatalf("expected tenant %s got %s", tenantID, record.TenantID)
	}
	if record.Verb != activity.VerbRecordCreated || record.ObjectType != "store_test.person" || record.ObjectID != recordID {
		t.Fatalf("unexpected record payload: %+v", record)
	}
	if record.Channel != "records" {
		t.Fatalf("expected channel records got %q", record.Channel)
	}
	if record.OccurredAt != now {
		t.Fatalf("expected occurred_at %v got %v", now, record.OccurredAt)
	}
	if record.Data["configuration"] != "Remote" || record.Data["configuration_inferred"] != false {
		t.Fatalf("expected configuration data got %v", record.Data)
	}
	if record.Data["source"] != "script" {
		t.Fatalf("expected metadata passthrough got %v", record.Data["source"])
	}
}

func TestHookNotifySkipsMissingVerb(t *testing.T) {
	sink := &recordingSink{}
	hook := usersink.Hook{Sink: sink}

	_ = hook.Notify(context.Background(), activity.Event{})

	if len(sink.records) != 0 {
		t.Fatalf("expected no records for empty event, got %d", len(sink.records))
	}
}

func TestHookNotifyDefaultsTimestampAndReturnsSinkError(t *testing.T) {
	boom := errors.New("sink down")
	sink := &recordingSink{err: boom}
	hook := usersink.Hook{Sink: sink}

	err := hook.Notify(context.Background(), activity.Event{
		Verb:       activity.VerbRecordCreated,
		ObjectType: "store_test.person",
		ObjectID:   "1",
		Inferred:   true,
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected sink error, got %v", err)
	}
	if len(sink.records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(sink.records))
	}
	if sink.records[0].OccurredAt.IsZero() {
		t.Fatalf("expected occurred_at to be defaulted")
	}
	if sink.records[0].Data["configuration_inferred"] != true {
		t.Fatalf("expected inferred marker, got %v", sink.records[0].Data)
	}
}
