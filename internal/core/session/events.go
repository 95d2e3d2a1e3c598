package session

// Event types published on the bus. Event.Source is the current run id.
const (
	EventStateChanged   = "session.state"
	EventRunStarted     = "run.started"
	EventRunEnded       = "run.ended"
	EventMonkeyCaptured = "monkey.captured"
	EventHunterMode     = "hunter.mode"
)

type StateChanged struct {
	From State `json:"from"`
	To   State `json:"to"`
}

type RunStarted struct {
	RunID   string `json:"run_id"`
	Variant string `json:"variant"`
}

type RunEnded struct {
	RunID   string  `json:"run_id"`
	Variant string  `json:"variant"`
	Won     bool    `json:"won"`
	Elapsed float64 `json:"elapsed"`
}

type MonkeyCaptured struct {
	Monkey  string  `json:"monkey"`
	State   State   `json:"state"`
	Elapsed float64 `json:"elapsed"`
}

type HunterModeChanged struct {
	Mode   string `json:"mode"`
	Target string `json:"target,omitempty"`
}
