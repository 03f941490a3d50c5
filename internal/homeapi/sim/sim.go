// Package sim provides trivial in-memory collaborators so the daemon can run
// end-to-end without a real home-automation platform behind it. The real
// capability simulators live outside this repo.
package sim

import (
	"context"
	"fmt"
	"sync"

	"homeauto/internal/homeapi"
	logx "homeauto/pkg/logx"
)

// Hub implements every homeapi contract over in-memory state.
type Hub struct {
	mu       sync.Mutex
	caps     map[string]any // deviceID/capability -> value
	settings map[string]any
	presence homeapi.PresenceStatus
	price    homeapi.EnergyPrice

	log logx.Logger
}

func New(log logx.Logger) *Hub {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Hub{
		caps:     map[string]any{},
		settings: map[string]any{},
		presence: homeapi.PresenceStatus{Status: "home"},
		price:    homeapi.EnergyPrice{Price: 0.25, Level: "normal"},
		log:      log,
	}
}

// Clients returns the hub wired into a homeapi.Clients bundle.
func (h *Hub) Clients() homeapi.Clients {
	return homeapi.Clients{
		Devices:  h,
		Scenes:   h,
		Flows:    h,
		Presence: h,
		Energy:   h,
		Settings: h,
	}
}

func capKey(deviceID, capability string) string { return deviceID + "/" + capability }

func (h *Hub) SetCapability(ctx context.Context, deviceID, capability string, value any) error {
	_ = ctx
	h.mu.Lock()
	h.caps[capKey(deviceID, capability)] = value
	h.mu.Unlock()
	h.log.Debug("device capability set", logx.String("device", deviceID), logx.String("capability", capability), logx.Any("value", value))
	return nil
}

func (h *Hub) GetCapability(ctx context.Context, deviceID, capability string) (any, error) {
	_ = ctx
	h.mu.Lock()
	v, ok := h.caps[capKey(deviceID, capability)]
	h.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("unknown capability %s/%s", deviceID, capability)
	}
	return v, nil
}

func (h *Hub) Activate(ctx context.Context, sceneID string) error {
	_ = ctx
	h.log.Info("scene activated", logx.String("scene", sceneID))
	return nil
}

func (h *Hub) Trigger(ctx context.Context, flowID string, tokens map[string]any) error {
	_ = ctx
	h.log.Info("flow triggered", logx.String("flow", flowID), logx.Int("tokens", len(tokens)))
	return nil
}

func (h *Hub) Status(ctx context.Context) (homeapi.PresenceStatus, error) {
	_ = ctx
	h.mu.Lock()
	p := h.presence
	h.mu.Unlock()
	return p, nil
}

func (h *Hub) SetPresence(status string) {
	h.mu.Lock()
	h.presence = homeapi.PresenceStatus{Status: status}
	h.mu.Unlock()
}

func (h *Hub) CurrentPrice(ctx context.Context) (homeapi.EnergyPrice, error) {
	_ = ctx
	h.mu.Lock()
	p := h.price
	h.mu.Unlock()
	return p, nil
}

func (h *Hub) SetPrice(price float64, level string) {
	h.mu.Lock()
	h.price = homeapi.EnergyPrice{Price: price, Level: level}
	h.mu.Unlock()
}

func (h *Hub) SetSetting(ctx context.Context, key string, value any) error {
	_ = ctx
	h.mu.Lock()
	h.settings[key] = value
	h.mu.Unlock()
	h.log.Debug("setting updated", logx.String("key", key))
	return nil
}
