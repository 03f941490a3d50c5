package task

// ConditionKind enumerates the closed predicate set; there is no general
// expression language.
type ConditionKind string

const (
	CondTimeRange   ConditionKind = "time_range"
	CondPresence    ConditionKind = "presence"
	CondDeviceState ConditionKind = "device_state"
	CondWeather     ConditionKind = "weather"
	CondEnergyPrice ConditionKind = "energy_price"
)

// Operator compares an observed value against Condition.Value.
type Operator string

const (
	OpEquals      Operator = "equals"
	OpNotEquals   Operator = "not_equals"
	OpGreaterThan Operator = "greater_than"
	OpLessThan    Operator = "less_than"
)

// Condition is one predicate; a task's conditions are AND-combined.
type Condition struct {
	Kind ConditionKind `json:"kind"`

	// time_range: minute-of-day bounds [Start,End], inclusive.
	// Start > End means an overnight range that wraps midnight.
	Start int `json:"start,omitempty"`
	End   int `json:"end,omitempty"`

	// presence
	ExpectedState string `json:"expected_state,omitempty"`

	// device_state
	DeviceID   string   `json:"device_id,omitempty"`
	Capability string   `json:"capability,omitempty"`
	Operator   Operator `json:"operator,omitempty"` // also energy_price
	Value      any      `json:"value,omitempty"`

	// energy_price: either a numeric ceiling/floor via Operator+Price,
	// or a level match ("low", "normal", "high").
	Price float64 `json:"price,omitempty"`
	Level string  `json:"level,omitempty"`
}

func (k ConditionKind) Valid() bool {
	switch k {
	case CondTimeRange, CondPresence, CondDeviceState, CondWeather, CondEnergyPrice:
		return true
	}
	return false
}

func (o Operator) Valid() bool {
	switch o {
	case OpEquals, OpNotEquals, OpGreaterThan, OpLessThan:
		return true
	}
	return false
}
