package models

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"nil", nil, ErrorKindNone},
		{"invalid flow", ErrInvalidFlow, ErrorKindGraph},
		{"no start node", ErrNoStartNode, ErrorKindGraph},
		{"duplicate node id", ErrDuplicateNodeID, ErrorKindGraph},
		{"node not found", ErrNodeNotFound, ErrorKindGraph},
		{"invalid node config", ErrInvalidNodeConfig, ErrorKindConfiguration},
		{"missing transfer target", ErrMissingTransferTarget, ErrorKindConfiguration},
		{"incomplete identity", ErrIncompleteIdentity, ErrorKindConfiguration},
		{"state store", ErrStateStore, ErrorKindStateStore},
		{"history write", ErrHistoryWrite, ErrorKindHistoryWrite},
		{"unclassified", errors.New("something else"), ErrorKindStateStore},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf(%v) = %q, want %q", tt.err, got, tt.want)
			}
		})
	}
}

func TestKindOfWrapped(t *testing.T) {
	err := fmt.Errorf("%w: node n1: boom", ErrMissingTransferTarget)
	if got := KindOf(err); got != ErrorKindConfiguration {
		t.Errorf("KindOf(wrapped) = %q, want configuration_error", got)
	}

	err = fmt.Errorf("%w: load: connection refused", ErrStateStore)
	if got := KindOf(err); got != ErrorKindStateStore {
		t.Errorf("KindOf(wrapped) = %q, want state_store_error", got)
	}
}
