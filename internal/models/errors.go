// Package models defines the error taxonomy shared by the engine and its
// callers.
package models

import "errors"

// Graph errors: the flow definition itself is broken. Always fatal to the
// turn, never retried.
var (
	ErrInvalidFlow     = errors.New("invalid flow definition")
	ErrNoStartNode     = errors.New("flow has no start node")
	ErrDuplicateNodeID = errors.New("flow has duplicate node ids")
	ErrNodeNotFound    = errors.New("node not found in flow")
)

// Configuration errors: a node is missing a required parameter. Fatal to the
// turn; the user sees a generic configuration message.
var (
	ErrInvalidNodeConfig     = errors.New("invalid node configuration")
	ErrMissingTransferTarget = errors.New("transfer node has no target configured")
	ErrIncompleteIdentity    = errors.New("conversation identity is incomplete")
)

// Collaborator errors.
var (
	// ErrStateStore wraps load/save/delete failures of the conversation
	// state store. Fatal to the turn; no partial state is written.
	ErrStateStore = errors.New("conversation state store failure")
	// ErrHistoryWrite wraps failures appending the terminal audit record.
	// Non-fatal: the turn still succeeds since the state has already
	// transitioned.
	ErrHistoryWrite = errors.New("conversation history write failure")
)

// ErrorKind buckets an engine error for callers that only need the category.
type ErrorKind string

const (
	ErrorKindNone          ErrorKind = ""
	ErrorKindGraph         ErrorKind = "graph_error"
	ErrorKindConfiguration ErrorKind = "configuration_error"
	ErrorKindStateStore    ErrorKind = "state_store_error"
	ErrorKindHistoryWrite  ErrorKind = "history_write_error"
)

// KindOf classifies err into the engine's error taxonomy.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return ErrorKindNone
	case errors.Is(err, ErrInvalidFlow),
		errors.Is(err, ErrNoStartNode),
		errors.Is(err, ErrDuplicateNodeID),
		errors.Is(err, ErrNodeNotFound):
		return ErrorKindGraph
	case errors.Is(err, ErrInvalidNodeConfig),
		errors.Is(err, ErrMissingTransferTarget),
		errors.Is(err, ErrIncompleteIdentity):
		return ErrorKindConfiguration
	case errors.Is(err, ErrHistoryWrite):
		return ErrorKindHistoryWrite
	case errors.Is(err, ErrStateStore):
		return ErrorKindStateStore
	default:
		return ErrorKindStateStore
	}
}
