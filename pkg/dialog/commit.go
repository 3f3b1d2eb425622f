package dialog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/harunnryd/domov/pkg/errorsx"
	"github.com/harunnryd/domov/pkg/homeassistant"
	"github.com/harunnryd/domov/pkg/messages"
	"github.com/harunnryd/domov/pkg/store"
)

// commit executes a complete frame exactly once. The pending intent is
// cleared whatever the outcome; only successful commits reach history.
func (m *Manager) commit(ctx context.Context, f *Frame) {
	m.session.clear()
	device := f.Value(SlotDevice)

	var err error
	switch f.Kind() {
	case KindLight:
		m.say(ctx, msgExecuting)
		err = m.commitLight(ctx, f)
		if err == nil {
			m.say(ctx, fmt.Sprintf("Světlo %s nastaveno.", device))
		}
	case KindTemperature:
		err = m.commitTemperature(ctx, f)
		if err == nil {
			m.say(ctx, fmt.Sprintf("Teplota v %s nastavena.", device))
		}
	case KindSwitch:
		action := f.Value(SlotAction)
		err = m.deps.Devices.ControlSwitch(ctx, action, device)
		if err == nil {
			m.say(ctx, fmt.Sprintf("Zásuvka %s byla %s.", device, action))
		}
	case KindQuery:
		reply, err := m.answer(ctx, f)
		m.say(ctx, reply)
		if err != nil {
			m.record("frame_failed", f)
			return
		}
		m.remember(f)
		return
	case KindScene:
		m.commitScene(ctx, f)
		return
	default:
		err = errorsx.New(errorsx.ReasonDeviceUnknownAction, "unknown intent "+string(f.Kind()))
	}

	if err != nil {
		m.failed(ctx, f, err)
		return
	}
	m.refresh(ctx)
	m.remember(f)
}

func (m *Manager) commitLight(ctx context.Context, f *Frame) error {
	device := f.Value(SlotDevice)
	switch action := f.Value(SlotAction); action {
	case "set", "on":
		opts := homeassistant.LightOptions{Color: f.Value(SlotColor)}
		if v, ok := f.Get(SlotBrightness); ok {
			if n, err := strconv.Atoi(v); err == nil {
				opts.Brightness = &n
			}
		}
		return m.deps.Devices.ControlLight(ctx, "on", device, opts)
	case "off":
		return m.deps.Devices.ControlLight(ctx, "off", device, homeassistant.LightOptions{})
	default:
		return errorsx.New(errorsx.ReasonDeviceUnknownAction, fmt.Sprintf("unknown light action %q", action))
	}
}

func (m *Manager) commitTemperature(ctx context.Context, f *Frame) error {
	raw := f.Value(SlotTemperature)
	temp, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return errorsx.Wrap(fmt.Errorf("temperature %q: %w", raw, err), errorsx.ReasonDeviceUnknownAction)
	}
	return m.deps.Devices.SetTemperature(ctx, f.Value(SlotDevice), temp)
}

// answer reads the queried device. On a failed read the reply says so and
// the read error is returned.
func (m *Manager) answer(ctx context.Context, f *Frame) (string, error) {
	device := f.Value(SlotDevice)
	st, err := m.deps.Devices.State(ctx, device)
	if err != nil {
		m.logger.Warn("query_state_failed", slog.String("entity_id", device), slog.String("error", err.Error()))
	}
	return Answer(f.Value(SlotQueryType), device, st, err == nil), err
}

func (m *Manager) commitScene(ctx context.Context, f *Frame) {
	name := f.Value(SlotScene)
	failures, err := m.ActivateScene(ctx, name, m.say)
	if err != nil {
		m.logger.Warn("scene_failed", slog.String("scene", name), slog.String("error", err.Error()))
		m.record("frame_failed", f)
		return
	}
	if len(failures) > 0 {
		m.record("frame_failed", f)
		return
	}
	m.remember(f)
}

// ActivateScene replays the scene's saved actions, reports the outcome
// through report and refreshes the device snapshot. A missing scene
// returns an error without touching any device; failed actions are
// returned one by one while the remaining actions still run.
func (m *Manager) ActivateScene(ctx context.Context, name string, report func(context.Context, string)) ([]error, error) {
	if m.deps.Scenes == nil || m.deps.Replayer == nil {
		return nil, errorsx.New(errorsx.ReasonSceneMissing, "scenes not configured")
	}
	actions, err := m.deps.Scenes.SceneActions(name)
	if errors.Is(err, store.ErrNotFound) {
		report(ctx, fmt.Sprintf("Scéna '%s' neexistuje.", name))
		return nil, errorsx.Wrap(err, errorsx.ReasonSceneMissing)
	}
	if err != nil {
		report(ctx, fmt.Sprintf("Scénu '%s' se nepodařilo načíst.", name))
		return nil, err
	}

	var failures []error
	for i, raw := range actions {
		if err := m.deps.Replayer.Replay(ctx, raw); err != nil {
			failures = append(failures, fmt.Errorf("action %d: %w", i+1, err))
		}
	}
	report(ctx, fmt.Sprintf("Scéna '%s' byla aktivována.", name))
	for _, ferr := range failures {
		report(ctx, fmt.Sprintf("Akce scény '%s' selhala: %s", name, ferr))
	}
	if joined := errorsx.Join(errorsx.ReasonScenePartial, failures...); joined != nil {
		m.logger.Warn("scene_partial", slog.String("scene", name), slog.String("error", joined.Error()))
	}
	m.refresh(ctx)
	return failures, nil
}

func (m *Manager) failed(ctx context.Context, f *Frame, err error) {
	device := f.Value(SlotDevice)
	m.logger.Warn("frame_commit_failed",
		slog.String("kind", string(f.Kind())),
		slog.String("entity_id", device),
		slog.String("reason", string(errorsx.Reason(err))),
		slog.String("error", err.Error()),
	)
	m.record("frame_failed", f)
	m.say(ctx, fmt.Sprintf("Zařízení %s se nepodařilo ovládat.", device))
}

func (m *Manager) remember(f *Frame) {
	summary := f.String()
	m.session.history = append(m.session.history, summary)
	m.record("frame_committed", f)
	m.logger.Info("frame_committed", slog.String("kind", string(f.Kind())), slog.String("summary", summary))
}

// refresh waits for devices to settle and broadcasts their state.
func (m *Manager) refresh(ctx context.Context) {
	if m.cfg.SettleDelay > 0 {
		timer := time.NewTimer(m.cfg.SettleDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
	states, err := m.deps.Devices.States(ctx)
	if err != nil {
		m.logger.Warn("state_refresh_failed", slog.String("error", err.Error()))
		return
	}
	m.send(ctx, messages.StateUpdate(states))
}
