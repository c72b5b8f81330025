// Package singleinstance lets one resident own a loopback port and answer
// run-once requests from later invocations.
//
// Protocol, one request per connection:
//
//	client: PING\n                  server: PONG\n
//	client: CLIPBOARD\n | STDOUT\n  server: <STATUS>\n<payload>
//
// The payload is the recognised text for COPIED and the message for ERROR.
package singleinstance

import (
	"errors"
	"fmt"
)

const (
	DefaultPort = 49500

	residentHost = "127.0.0.1"
	pingRequest  = "PING\n"
	pongResponse = "PONG\n"
	reqClipboard = "CLIPBOARD\n"
	reqStdout    = "STDOUT\n"
)

var ErrAlreadyRunning = errors.New("another instance is already running")

// Status is the first line of a reply.
type Status string

const (
	StatusCopied    Status = "COPIED"
	StatusEmpty     Status = "EMPTY"
	StatusCancelled Status = "CANCELLED"
	StatusBusy      Status = "BUSY"
	StatusError     Status = "ERROR"
)

func (s Status) valid() bool {
	switch s {
	case StatusCopied, StatusEmpty, StatusCancelled, StatusBusy, StatusError:
		return true
	}
	return false
}

// Request is a run-once invocation delegated to the resident.
type Request struct {
	OutputToStdout bool
}

// Reply is the resident's answer to a Request.
type Reply struct {
	Status Status
	// Payload is the text for StatusCopied and the message for StatusError.
	Payload string
}

func (r Reply) String() string {
	return fmt.Sprintf("%s (%d bytes)", r.Status, len(r.Payload))
}
