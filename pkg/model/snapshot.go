package model

// AgentStatus is a point-in-time view of one registered agent.
type AgentStatus struct {
	Name      string `json:"name"`
	Priority  int    `json:"priority"`
	Timestamp uint64 `json:"timestamp"`
	Free      bool   `json:"free"`
	Denied    bool   `json:"denied"`
	EntryID   string `json:"entry_id,omitempty"`
}

// EntrySnapshot is a point-in-time view of one active WorkEntry.
type EntrySnapshot struct {
	ID         string     `json:"id"`
	Owner      string     `json:"owner"`
	Action     string     `json:"action"`
	State      EntryState `json:"state"`
	Cancelable bool       `json:"cancelable"`
	Idle       bool       `json:"idle"`
	Resources  []string   `json:"resources"`
	Additional []string   `json:"additional,omitempty"`
}

// ControllerSnapshot is a consistent copy of the scheduler tables.
type ControllerSnapshot struct {
	Tick    uint64          `json:"tick"`
	Passes  uint64          `json:"passes"`
	Enabled bool            `json:"enabled"`
	Agents  []AgentStatus   `json:"agents"`
	Entries []EntrySnapshot `json:"entries"`
	Denied  []string        `json:"denied"`
}
