package homeassistant

import (
	"context"
	"fmt"

	"github.com/harunnryd/domov/pkg/errorsx"
)

// LightOptions are the optional attributes of a light turn_on call.
type LightOptions struct {
	Brightness *int
	Color      string
}

// ControlLight turns a light "on" or "off". Brightness is sent only
// within 0..255 and color only when set; both are ignored for "off".
func (c *Client) ControlLight(ctx context.Context, action, entityID string, opts LightOptions) error {
	data := map[string]any{"entity_id": entityID}
	switch action {
	case "on":
		if opts.Brightness != nil && *opts.Brightness >= 0 && *opts.Brightness <= 255 {
			data["brightness"] = *opts.Brightness
		}
		if opts.Color != "" {
			data["color_name"] = opts.Color
		}
		return c.CallService(ctx, "light", "turn_on", data)
	case "off":
		return c.CallService(ctx, "light", "turn_off", data)
	default:
		return unknownAction(action)
	}
}

// ToggleLight reads the light state and flips it.
func (c *Client) ToggleLight(ctx context.Context, entityID string) error {
	st, err := c.State(ctx, entityID)
	if err != nil {
		return err
	}
	if st.State == "on" {
		return c.ControlLight(ctx, "off", entityID, LightOptions{})
	}
	return c.ControlLight(ctx, "on", entityID, LightOptions{})
}

func (c *Client) SetLightColor(ctx context.Context, entityID, color string) error {
	return c.CallService(ctx, "light", "turn_on", map[string]any{
		"entity_id":  entityID,
		"color_name": color,
	})
}

// SetLightTemperature sets the white temperature in mireds.
func (c *Client) SetLightTemperature(ctx context.Context, entityID string, mireds int) error {
	return c.CallService(ctx, "light", "turn_on", map[string]any{
		"entity_id":  entityID,
		"color_temp": mireds,
	})
}

// SetTemperature sets the target temperature of a climate entity.
func (c *Client) SetTemperature(ctx context.Context, entityID string, temperature float64) error {
	return c.CallService(ctx, "climate", "set_temperature", map[string]any{
		"entity_id":   entityID,
		"temperature": temperature,
	})
}

func (c *Client) ControlSwitch(ctx context.Context, action, entityID string) error {
	switch action {
	case "on":
		return c.CallService(ctx, "switch", "turn_on", map[string]any{"entity_id": entityID})
	case "off":
		return c.CallService(ctx, "switch", "turn_off", map[string]any{"entity_id": entityID})
	default:
		return unknownAction(action)
	}
}

func (c *Client) ToggleSwitch(ctx context.Context, entityID string) error {
	st, err := c.State(ctx, entityID)
	if err != nil {
		return err
	}
	if st.State == "on" {
		return c.ControlSwitch(ctx, "off", entityID)
	}
	return c.ControlSwitch(ctx, "on", entityID)
}

func unknownAction(action string) error {
	return errorsx.New(errorsx.ReasonDeviceUnknownAction, fmt.Sprintf("unknown action %q", action))
}
