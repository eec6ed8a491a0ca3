package activity

import (
	"context"
	"errors"
	"testing"
)

func TestBuildRecordCreatedEventCarriesClauseFields(t *testing.T) {
	meta := map[string]any{"custom": "value"}
	input := RecordEventInput{
		ActorID:       " actor ",
		TenantID:      " tenant ",
		RecordType:    " main.Person ",
		RecordID:      " 7f1c ",
		Configuration: "Remote",
		Metadata:      meta,
		Channel:       "records",
	}

	event := BuildRecordCreatedEvent(input)

	if event.Verb != VerbRecordCreated {
		t.Fatalf("expected verb %s got %s", VerbRecordCreated, event.Verb)
	}
	if event.ObjectType != "main.Person" || event.ObjectID != "7f1c" {
		t.Fatalf("unexpected object fields: %+v", event)
	}
	if event.ActorID != "actor" || event.TenantID != "tenant" {
		t.Fatalf("unexpected identity fields: %+v", event)
	}
	if event.Configuration != "Remote" || event.Inferred {
		t.Fatalf("unexpected configuration fields: %+v", event)
	}
	if _, ok := event.Metadata["configuration_inferred"]; ok {
		t.Fatalf("explicit configuration must not be marked inferred: %+v", event.Metadata)
	}
	event.Metadata["custom"] = "changed"
	if meta["custom"] != "value" {
		t.Fatalf("expected input metadata untouched")
	}
}

func TestBuildRecordCreateFailedEventFallsBackToRecordType(t *testing.T) {
	event := BuildRecordCreateFailedEvent(RecordEventInput{
		RecordType: "main.Person",
		Inferred:   true,
		Err:        errors.New("ambiguous"),
	})

	if event.Verb != VerbRecordCreateFailed {
		t.Fatalf("expected verb %s got %s", VerbRecordCreateFailed, event.Verb)
	}
	if event.ObjectID != "main.Person" {
		t.Fatalf("expected object id fallback, got %q", event.ObjectID)
	}
	if event.Metadata["error"] != "ambiguous" {
		t.Fatalf("expected error metadata, got %v", event.Metadata["error"])
	}
	if event.Metadata["configuration_inferred"] != true || !event.Inferred {
		t.Fatalf("expected inferred marker, got %+v", event)
	}
}

func TestRecordEventsFlowThroughEmitter(t *testing.T) {
	capture := &CaptureHook{}
	emitter := NewEmitter(Hooks{capture}, Config{Enabled: true})

	err := emitter.Emit(context.Background(), BuildRecordCreatedEvent(RecordEventInput{
		RecordType: "main.Person",
		RecordID:   "1",
	}))
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
	if len(capture.Events) != 1 {
		t.Fatalf("expected one event, got %d", len(capture.Events))
	}
	if capture.Events[0].Channel != DefaultChannel {
		t.Fatalf("expected default channel, got %q", capture.Events[0].Channel)
	}
	if capture.Events[0].OccurredAt.IsZero() {
		t.Fatalf("expected timestamp to be defaulted")
	}
}
