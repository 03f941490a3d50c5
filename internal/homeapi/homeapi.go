// Package homeapi declares the narrow contracts the scheduler consumes from
// the surrounding home-automation platform. Device actuation, scenes, flows,
// presence and energy pricing are external collaborators; the scheduler only
// depends on these interfaces.
package homeapi

import "context"

// DeviceService actuates and reads device capabilities.
type DeviceService interface {
	SetCapability(ctx context.Context, deviceID, capability string, value any) error
	GetCapability(ctx context.Context, deviceID, capability string) (any, error)
}

// SceneService activates lighting/mood scenes.
type SceneService interface {
	Activate(ctx context.Context, sceneID string) error
}

// FlowService triggers automation flows with optional tokens.
type FlowService interface {
	Trigger(ctx context.Context, flowID string, tokens map[string]any) error
}

// PresenceStatus is the household presence as reported by the platform.
type PresenceStatus struct {
	Status string // e.g. "home", "away", "sleeping"
}

type PresenceService interface {
	Status(ctx context.Context) (PresenceStatus, error)
}

// EnergyPrice is the current electricity price and its coarse level.
type EnergyPrice struct {
	Price float64
	Level string // "low", "normal", "high"
}

type EnergyPriceService interface {
	CurrentPrice(ctx context.Context) (EnergyPrice, error)
}

// SettingsStore backs the set_setting built-in action.
type SettingsStore interface {
	SetSetting(ctx context.Context, key string, value any) error
}

// Clients bundles all collaborators. Individual fields may be nil; consumers
// treat a nil collaborator like a collaborator error (per-call-site policy).
type Clients struct {
	Devices  DeviceService
	Scenes   SceneService
	Flows    FlowService
	Presence PresenceService
	Energy   EnergyPriceService
	Settings SettingsStore
}
