// Package srt holds the types, sentinel errors and tunable configuration
// shared by the client and server packages: the common vocabulary of the
// Simple Reliable Transport protocol.
package srt

import "errors"

// Sentinel errors for the connection lifecycle; callers use errors.Is
// against these.
var (
	// ErrNoFreeSlot is returned by Sock when an endpoint's connection table
	// has no empty slot left (resource exhaustion).
	ErrNoFreeSlot = errors.New("srt: no free connection slot")

	// ErrWrongState is returned when a socket operation is invoked from an
	// FSM state that does not permit it.
	ErrWrongState = errors.New("srt: operation not valid in current state")

	// ErrRetriesExhausted is returned by Connect/Disconnect when the
	// maximum number of SYN/FIN retransmissions elapsed unacknowledged.
	ErrRetriesExhausted = errors.New("srt: retry limit exhausted")
)
