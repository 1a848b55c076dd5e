package service

import "github.com/xkilldash9x/autopilot/internal/status"

// SessionStatus is the coarse state a viewer renders.
type SessionStatus string

const (
	StatusRunning SessionStatus = "running"
	StatusStopped SessionStatus = "stopped"
)

// Outbound message types.
const (
	TypeNewState     = "newState"
	TypeStatusUpdate = "statusUpdate"
	TypeStatusList   = "statusList"
)

// Inbound message types.
const (
	TypeStart = "start"
	TypeStop  = "stop"
)

// SessionState is the payload of a newState message.
type SessionState struct {
	Status SessionStatus `json:"status"`
}

// NewStateMessage announces that a session started or stopped.
type NewStateMessage struct {
	Type  string       `json:"type"`
	State SessionState `json:"state"`
}

// StatusUpdateMessage carries one new or changed status entry.
type StatusUpdateMessage struct {
	Type   string        `json:"type"`
	Status status.Update `json:"status"`
}

// StatusListMessage replays the whole log to a viewer that just attached.
type StatusListMessage struct {
	Type     string          `json:"type"`
	Statuses []status.Update `json:"statuses"`
}

// ClientMessage is what viewers send.
type ClientMessage struct {
	Type string `json:"type"`
}

func NewState(s SessionStatus) NewStateMessage {
	return NewStateMessage{Type: TypeNewState, State: SessionState{Status: s}}
}

func StatusUpdate(u status.Update) StatusUpdateMessage {
	return StatusUpdateMessage{Type: TypeStatusUpdate, Status: u}
}

func StatusList(list []status.Update) StatusListMessage {
	if list == nil {
		list = []status.Update{}
	}
	return StatusListMessage{Type: TypeStatusList, Statuses: list}
}
