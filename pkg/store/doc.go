// Package store provides MemoryStore, an in-memory engine that accepts
// insertion clauses through the into.Inserter contract. It is intended for
// tests and examples and makes no persistence assumptions.
//
// A MemoryStore holds named configurations, each listing the record types it
// can create. Clause handling:
//
//	explicit configuration -> must exist and hold the record type
//	inferred configuration -> exactly one configuration may hold the type
//
// The empty name is an ordinary explicit configuration ("default"); it is
// never chosen by inference unless it is the only candidate.
//
// Failures are *into.CreationError values whose cause matches
// into.ErrUnknownRecordType, into.ErrUnknownConfiguration or
// into.ErrAmbiguousConfiguration under errors.Is. Created records are stored
// under Ref.Identifier() and announced through an optional activity.Emitter.
package store
