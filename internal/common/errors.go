// Package common defines shared constants and sentinel errors used across the
// door43client layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound        = errors.New("not found")
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrStoreInvariant indicates the store and the caller disagree about a
	// table's uniqueness keys: an upsert detected a conflict but the follow-up
	// update matched zero rows. Always fatal to the enclosing transaction.
	ErrStoreInvariant = errors.New("store invariant violation")

	// Lookup errors surfaced by the resource container bridge.
	ErrUnknownResource        = errors.New("unknown resource")
	ErrMissingContainerFormat = errors.New("missing resource container format")
	ErrUnsupportedProject     = errors.New("unsupported project")

	// ErrRemoteFetch indicates a non-success status or transport error from
	// the fetch collaborator. Fatal to the enclosing sync transaction.
	ErrRemoteFetch = errors.New("remote fetch failed")
)
