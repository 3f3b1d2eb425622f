package domov

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/harunnryd/domov/pkg/errorsx"
	"github.com/harunnryd/domov/pkg/homeassistant"
	"github.com/harunnryd/domov/pkg/lexicon"
	"github.com/harunnryd/domov/pkg/messages"
	"github.com/harunnryd/domov/pkg/store"
)

// dispatch executes one inbound message. replay is set for actions of an
// activated scene; those never re-enter the dialog.
func (s *session) dispatch(ctx context.Context, msg messages.Inbound, replay bool) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	home := s.a.home
	switch msg.Type {
	case messages.TypeToggleLight:
		return s.device(msg, home.ToggleLight(ctx, msg.EntityID))
	case messages.TypeSetLightColor:
		return s.device(msg, home.SetLightColor(ctx, msg.EntityID, msg.Color))
	case messages.TypeSetBrightness:
		var opts homeassistant.LightOptions
		if v, ok := msg.BrightnessValue(); ok {
			opts.Brightness = &v
		}
		return s.device(msg, home.ControlLight(ctx, "on", msg.EntityID, opts))
	case messages.TypeSetTemperature:
		temp, err := msg.TemperatureValue()
		if err != nil {
			return errorsx.Wrap(fmt.Errorf("set_temperature: %w", err), errorsx.ReasonMessageDecode)
		}
		return s.device(msg, home.SetTemperature(ctx, msg.EntityID, temp))
	case messages.TypeSetLightTemp:
		mireds, err := msg.MiredsValue()
		if err != nil {
			return errorsx.Wrap(fmt.Errorf("set_light_temperature: %w", err), errorsx.ReasonMessageDecode)
		}
		return s.device(msg, home.SetLightTemperature(ctx, msg.EntityID, mireds))
	case messages.TypeControlLight:
		opts := homeassistant.LightOptions{Color: msg.Color}
		if v, ok := msg.BrightnessValue(); ok {
			opts.Brightness = &v
		}
		return s.device(msg, home.ControlLight(ctx, actionOr(msg.Action, "on"), msg.EntityID, opts))
	case messages.TypeGetTemperature:
		v, err := home.Temperature(ctx, msg.EntityID)
		if err != nil {
			return s.device(msg, err)
		}
		return s.Send(ctx, messages.TemperatureUpdate(msg.ElementID, v))
	case messages.TypeToggleSwitch:
		return s.device(msg, home.ToggleSwitch(ctx, msg.EntityID))
	case messages.TypeControlSwitch:
		return s.device(msg, home.ControlSwitch(ctx, actionOr(msg.Action, "on"), msg.EntityID))
	case messages.TypeGetDeviceStates:
		states, err := home.States(ctx)
		if err != nil {
			return s.device(msg, err)
		}
		return s.Send(ctx, messages.StateUpdate(states))

	case messages.TypeToggleTTS:
		s.logger.Info("tts_toggled", slog.Bool("enabled", s.state.ToggleTTS()))
		return nil
	case messages.TypeToggleRec:
		s.logger.Info("listening_toggled", slog.Bool("enabled", s.state.ToggleListening()))
		return nil

	case messages.TypeChatInput:
		if replay {
			return notReplayable(msg.Type)
		}
		text, err := msg.Text()
		if err != nil {
			return err
		}
		s.manager.HandleText(ctx, text)
		return nil
	case messages.TypeActivateScene:
		if replay {
			return notReplayable(msg.Type)
		}
		_, err := s.manager.ActivateScene(ctx, msg.Scene, s.display)
		return err

	case messages.TypeSettings:
		names, err := s.a.store.FriendlyNames()
		if err != nil {
			return err
		}
		return s.Send(ctx, messages.Settings(names))
	case messages.TypeSetFriendlyName:
		var names store.FriendlyNames
		if err := json.Unmarshal(msg.Data, &names); err != nil {
			return errorsx.Wrap(fmt.Errorf("friendly names: %w", err), errorsx.ReasonMessageDecode)
		}
		if err := s.a.store.SaveFriendlyNames(names); err != nil {
			return err
		}
		s.a.reindex(ctx, "friendly_names")
		return s.Send(ctx, messages.Chat("Friendly names byla uložena."))
	case messages.TypeGetScenes:
		return s.sendSceneList(ctx)
	case messages.TypeSaveScene:
		if err := s.a.store.SaveScene(msg.Name, msg.Actions); err != nil {
			return err
		}
		s.a.reindex(ctx, "scenes")
		if err := s.Send(ctx, messages.Chat(fmt.Sprintf("Scéna '%s' byla uložena.", msg.Name))); err != nil {
			return err
		}
		return s.sendSceneList(ctx)
	case messages.TypeGetGrammar:
		g, err := s.a.store.Grammar()
		if err != nil {
			return err
		}
		return s.Send(ctx, messages.Grammar(g))
	case messages.TypeSetGrammar:
		g, err := lexicon.DecodeJSON(msg.Data)
		if err != nil {
			return errorsx.Wrap(fmt.Errorf("grammar: %w", err), errorsx.ReasonMessageDecode)
		}
		if err := s.a.store.SaveGrammar(g); err != nil {
			return err
		}
		s.a.reindex(ctx, "grammar")
		return s.Send(ctx, messages.Chat("Gramatika byla uložena."))
	default:
		return errorsx.New(errorsx.ReasonMessageUnknown, "unknown message type "+string(msg.Type))
	}
}

// Replay implements dialog.Replayer for scene activation.
func (s *session) Replay(ctx context.Context, raw json.RawMessage) error {
	msg, err := messages.Decode(raw)
	if err != nil {
		return err
	}
	if !messages.Known(msg.Type) {
		return errorsx.New(errorsx.ReasonMessageUnknown, "unknown message type "+string(msg.Type))
	}
	return s.dispatch(ctx, msg, true)
}

func (s *session) device(msg messages.Inbound, err error) error {
	if err != nil {
		s.logger.Warn("device_action_failed",
			slog.String("type", string(msg.Type)),
			slog.String("entity_id", msg.EntityID),
			slog.String("reason", string(errorsx.Reason(err))),
		)
	}
	return err
}

func (s *session) display(ctx context.Context, text string) {
	_ = s.Send(ctx, messages.Chat(text))
}

func (s *session) sendSceneList(ctx context.Context) error {
	scenes, err := s.a.store.Scenes()
	if err != nil {
		return err
	}
	return s.Send(ctx, messages.SceneList(scenes.Names()))
}

func actionOr(action, fallback string) string {
	if action == "" {
		return fallback
	}
	return action
}

func notReplayable(t messages.Type) error {
	return errorsx.New(errorsx.ReasonMessageUnknown, string(t)+" cannot be part of a scene")
}
