package store

import (
	"fmt"

	into "github.com/goliatone/go-into"
)

// DefaultConfiguration is the name of the unnamed configuration.
const DefaultConfiguration = ""

// Ref identifies one stored record.
type Ref struct {
	Configuration string
	RecordType    into.RecordType
	ID            string
}

// Identifiable records receive the id the store assigns them.
type Identifiable interface {
	SetRecordID(id string)
}

// Identifier returns the display key for r. Distinct Go types can share a
// display name, so the store keys records by type identity, not by this
// string.
func (r Ref) Identifier() (string, error) {
	if !r.RecordType.Resolved() {
		return "", fmt.Errorf("store: record type %s is not resolved", r.RecordType)
	}
	if r.ID == "" {
		return "", fmt.Errorf("store: record id is required")
	}
	return fmt.Sprintf("%s/%s/%s", configurationKey(r.Configuration), r.RecordType.Name(), r.ID), nil
}

func configurationKey(name string) string {
	if name == DefaultConfiguration {
		return "default"
	}
	return "config:" + name
}

// records are keyed by descriptor identity
type recordKey struct {
	configuration string
	recordType    into.RecordType
	id            string
}

func (r Ref) key() recordKey {
	return recordKey{configuration: r.Configuration, recordType: r.RecordType, id: r.ID}
}
