package into

import (
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Into is the insertion clause consumed by generic engine entry points. T is a
// compile-time tag only; it does not change the clause contents.
//
// An Into either names a configuration explicitly (including the empty
// default configuration) or asks the engine to infer one. Inference is never
// resolved by the clause itself.
type Into[T any] struct {
	recordType    RecordType
	configuration string
	inferStore    bool
}

// AnyInto is the canonical erased instantiation held by Clause.
type AnyInto = Into[any]

// New returns a clause for T that lets the engine infer the configuration.
func New[T any]() Into[T] {
	return Into[T]{recordType: TypeOf[T](), inferStore: true}
}

// In returns a clause for T bound to configuration. An empty name selects the
// default configuration; it does not request inference.
func In[T any](configuration string) Into[T] {
	return Into[T]{recordType: TypeOf[T](), configuration: configuration}
}

// ForType returns a clause that creates records of rt and hands them back as
// T, inferring the configuration. rt is expected to be assignable to T; this
// is checked by the engine at use time, not here.
func ForType[T any](rt RecordType) Into[T] {
	return Into[T]{recordType: rt, inferStore: true}
}

// ForTypeIn is ForType with an explicit configuration.
func ForTypeIn[T any](rt RecordType, configuration string) Into[T] {
	return Into[T]{recordType: rt, configuration: configuration}
}

// RecordType returns the descriptor of the records this clause creates.
func (i Into[T]) RecordType() RecordType {
	return i.recordType
}

// Configuration returns the configuration name and whether it was given
// explicitly. The name is empty when the clause infers its configuration.
func (i Into[T]) Configuration() (string, bool) {
	if i.inferStore {
		return "", false
	}
	return i.configuration, true
}

// InferStore reports whether the engine must infer the configuration.
func (i Into[T]) InferStore() bool {
	return i.inferStore
}

// Equal compares the descriptor, configuration and inference flag. Clause
// equality is defined in terms of this method.
func (i Into[T]) Equal(other Into[T]) bool {
	return i.recordType.Equal(other.recordType) &&
		i.configuration == other.configuration &&
		i.inferStore == other.inferStore
}

// Hash returns a digest of the fields Equal compares. It is stable across
// processes.
func (i Into[T]) Hash() uint64 {
	digest := xxhash.New()
	writeHashField(digest, i.recordType.hashKey())
	writeHashField(digest, i.configuration)
	if i.inferStore {
		_, _ = digest.Write([]byte{1})
	} else {
		_, _ = digest.Write([]byte{0})
	}
	return digest.Sum64()
}

func (i Into[T]) String() string {
	if i.inferStore {
		return fmt.Sprintf("into(%s)", i.recordType)
	}
	return fmt.Sprintf("into(%s, %q)", i.recordType, i.configuration)
}

// fields are length prefixed so adjacent values cannot run together
func writeHashField(digest *xxhash.Digest, value string) {
	var size [8]byte
	binary.LittleEndian.PutUint64(size[:], uint64(len(value)))
	_, _ = digest.Write(size[:])
	_, _ = digest.WriteString(value)
}
