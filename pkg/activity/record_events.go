package activity

import (
	"strings"
	"time"
)

const (
	VerbRecordCreated      = "record.created"
	VerbRecordCreateFailed = "record.create_failed"
)

// RecordEventInput describes the fields shared by record creation events.
type RecordEventInput struct {
	ActorID       string
	UserID        string
	TenantID      string
	RecordType    string
	RecordID      string
	Configuration string
	Inferred      bool
	Channel       string
	Metadata      map[string]any
	Err           error
	OccurredAt    time.Time
}

// BuildRecordCreatedEvent constructs the event emitted after an engine
// created a record.
func BuildRecordCreatedEvent(input RecordEventInput) Event {
	return buildRecordEvent(VerbRecordCreated, input)
}

// BuildRecordCreateFailedEvent constructs the event emitted when an engine
// rejected a clause. The object id falls back to the record type name.
func BuildRecordCreateFailedEvent(input RecordEventInput) Event {
	return buildRecordEvent(VerbRecordCreateFailed, input)
}

func buildRecordEvent(verb string, input RecordEventInput) Event {
	metadata := cloneMap(input.Metadata)
	if input.Err != nil {
		metadata = ensureMetadata(metadata)
		metadata["error"] = input.Err.Error()
	}
	if input.Inferred {
		metadata = ensureMetadata(metadata)
		metadata["configuration_inferred"] = true
	}

	objectType := strings.TrimSpace(input.RecordType)
	objectID := strings.TrimSpace(input.RecordID)
	if objectID == "" {
		objectID = objectType
	}

	return Event{
		Verb:          verb,
		ActorID:       strings.TrimSpace(input.ActorID),
		UserID:        strings.TrimSpace(input.UserID),
		TenantID:      strings.TrimSpace(input.TenantID),
		ObjectType:    objectType,
		ObjectID:      objectID,
		Configuration: input.Configuration,
		Inferred:      input.Inferred,
		Channel:       strings.TrimSpace(input.Channel),
		Metadata:      metadata,
		OccurredAt:    input.OccurredAt,
	}
}

func ensureMetadata(meta map[string]any) map[string]any {
	if meta == nil {
		return map[string]any{}
	}
	return meta
}
