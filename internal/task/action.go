package task

// ActionKind enumerates the closed set of things a task may do.
// No arbitrary code is ever executed.
type ActionKind string

const (
	ActionDeviceCapability ActionKind = "device_capability"
	ActionSceneActivate    ActionKind = "scene_activate"
	ActionFlowTrigger      ActionKind = "flow_trigger"
	ActionEmitEvent        ActionKind = "emit_event"
	ActionSetSetting       ActionKind = "set_setting"
	ActionLogMessage       ActionKind = "log_message"
)

// Action is a tagged-variant descriptor; Kind selects which fields apply.
type Action struct {
	Kind ActionKind `json:"kind"`

	// device_capability
	DeviceID   string `json:"device_id,omitempty"`
	Capability string `json:"capability,omitempty"`
	Value      any    `json:"value,omitempty"` // also set_setting

	// scene_activate
	SceneID string `json:"scene_id,omitempty"`

	// flow_trigger
	FlowID string         `json:"flow_id,omitempty"`
	Tokens map[string]any `json:"tokens,omitempty"`

	// emit_event
	Event string `json:"event,omitempty"`

	// set_setting
	Setting string `json:"setting,omitempty"`

	// log_message
	Message string `json:"message,omitempty"`

	// Zone names the irrigation/climate zone this action touches, if any.
	// Used for conflict detection against Metadata.ConflictingZones.
	Zone string `json:"zone,omitempty"`
}

func (k ActionKind) Valid() bool {
	switch k {
	case ActionDeviceCapability, ActionSceneActivate, ActionFlowTrigger,
		ActionEmitEvent, ActionSetSetting, ActionLogMessage:
		return true
	}
	return false
}
