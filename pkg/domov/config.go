package domov

import (
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/harunnryd/domov/pkg/configutil"
	"github.com/harunnryd/domov/pkg/events"
	"github.com/harunnryd/domov/pkg/slu"
)

type Config struct {
	Environment   string              `mapstructure:"environment"`
	LogLevel      string              `mapstructure:"log_level"`
	LogFormat     string              `mapstructure:"log_format"`
	Session       SessionConfig       `mapstructure:"session"`
	SLU           SLUConfig           `mapstructure:"slu"`
	Lexicon       LexiconConfig       `mapstructure:"lexicon"`
	Storage       StorageConfig       `mapstructure:"storage"`
	HomeAssistant HomeAssistantConfig `mapstructure:"home_assistant"`
	Vendors       VendorsConfig       `mapstructure:"vendors"`
	Transports    TransportsConfig    `mapstructure:"transports"`
	MQTT          events.Config       `mapstructure:"mqtt"`
	Privacy       PrivacyConfig       `mapstructure:"privacy"`
}

type SessionConfig struct {
	TTS                bool `mapstructure:"tts"`
	Listen             bool `mapstructure:"listen"`
	RecognizeTimeoutMS int  `mapstructure:"recognize_timeout_ms"`
	// RecognizeTimeoutS is the legacy TIMEOUT variable in seconds; it
	// wins over RecognizeTimeoutMS when set.
	RecognizeTimeoutS int `mapstructure:"recognize_timeout_s"`
	SettleDelayMS     int `mapstructure:"settle_delay_ms"`
	MaxReprompts      int `mapstructure:"max_reprompts"`
	SpeakTimeoutMS    int `mapstructure:"speak_timeout_ms"`
}

type SLUConfig struct {
	Match        string            `mapstructure:"match"`
	Replacements map[string]string `mapstructure:"replacements"`
}

type LexiconConfig struct {
	SwitchExclude []string `mapstructure:"switch_exclude"`
}

type StorageConfig struct {
	GrammarPath          string `mapstructure:"grammar_path"`
	FriendlyNamesPath    string `mapstructure:"friendly_names_path"`
	ScenesPath           string `mapstructure:"scenes_path"`
	Watch                bool   `mapstructure:"watch"`
	HistoryDir           string `mapstructure:"history_dir"`
	HistoryRetentionDays int    `mapstructure:"history_retention_days"`
	// EventsPath, when set, receives every session event as a JSON line.
	EventsPath string `mapstructure:"events_path"`
}

type HomeAssistantConfig struct {
	URL               string `mapstructure:"url"`
	Token             string `mapstructure:"token"`
	TimeoutMS         int    `mapstructure:"timeout_ms"`
	Retries           int    `mapstructure:"retries"`
	RetryBackoffMS    int    `mapstructure:"retry_backoff_ms"`
	CircuitThreshold  int    `mapstructure:"circuit_threshold"`
	CircuitCooldownMS int    `mapstructure:"circuit_cooldown_ms"`
}

type VendorConfig struct {
	Provider string         `mapstructure:"provider"`
	Settings map[string]any `mapstructure:"settings"`
}

type VendorsConfig struct {
	STT VendorConfig `mapstructure:"stt"`
	TTS VendorConfig `mapstructure:"tts"`
}

type TransportsConfig struct {
	Provider string         `mapstructure:"provider"`
	Settings map[string]any `mapstructure:"settings"`
}

type PrivacyConfig struct {
	RedactPII bool `mapstructure:"redact_pii"`
}

// RecognizeTimeout is the bound of one recognition call.
func (c SessionConfig) RecognizeTimeout() time.Duration {
	if c.RecognizeTimeoutS > 0 {
		return time.Duration(c.RecognizeTimeoutS) * time.Second
	}
	return configutil.DurationMS(c.RecognizeTimeoutMS, 5*time.Second)
}

// legacyEnv are the variables of the original deployment.
var legacyEnv = map[string]string{
	"home_assistant.url":          "HA_URL",
	"home_assistant.token":        "HA_TOKEN",
	"storage.grammar_path":        "GRAMMAR_PATH",
	"storage.friendly_names_path": "FRIENDLY_NAMES",
	"storage.scenes_path":         "SCENES_PATH",
	"session.recognize_timeout_s": "TIMEOUT",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("session.tts", false)
	v.SetDefault("session.listen", false)
	v.SetDefault("session.recognize_timeout_ms", 5000)
	v.SetDefault("session.recognize_timeout_s", 0)
	v.SetDefault("session.settle_delay_ms", 1000)
	v.SetDefault("session.max_reprompts", 0)
	v.SetDefault("session.speak_timeout_ms", 30000)
	v.SetDefault("slu.match", string(slu.MatchSubstring))
	v.SetDefault("lexicon.switch_exclude", []string{"detsky_zamek", "security_camera"})
	v.SetDefault("storage.grammar_path", "grammar.json")
	v.SetDefault("storage.friendly_names_path", "friendly_names.json")
	v.SetDefault("storage.scenes_path", "scenes.json")
	v.SetDefault("storage.watch", true)
	v.SetDefault("storage.history_dir", "")
	v.SetDefault("storage.history_retention_days", 0)
	v.SetDefault("storage.events_path", "")
	v.SetDefault("home_assistant.url", "")
	v.SetDefault("home_assistant.token", "")
	v.SetDefault("home_assistant.timeout_ms", 10000)
	v.SetDefault("home_assistant.retries", 2)
	v.SetDefault("home_assistant.retry_backoff_ms", 200)
	v.SetDefault("home_assistant.circuit_threshold", 5)
	v.SetDefault("home_assistant.circuit_cooldown_ms", 10000)
	v.SetDefault("transports.provider", "websocket")
	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.topic_prefix", "domov")
	v.SetDefault("privacy.redact_pii", true)
}

// LoadConfig reads the YAML file at path, when given, over the defaults.
// Every key can also be set from DOMOV_<KEY> variables, and the legacy
// variables of legacyEnv are honoured.
func LoadConfig(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("DOMOV")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range legacyEnv {
		_ = v.BindEnv(key, "DOMOV_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal: %w", err)
	}

	expandEnvStrings(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Transports.Provider) == "" {
		return fmt.Errorf("transports.provider is required")
	}
	if err := configutil.RequireString(c.HomeAssistant.URL, "home_assistant.url"); err != nil {
		return err
	}
	if _, ok := slu.ParseMatchMode(c.SLU.Match); !ok {
		return fmt.Errorf("slu.match must be substring or word, got %q", c.SLU.Match)
	}
	if c.Session.RecognizeTimeoutMS < 0 || c.Session.SettleDelayMS < 0 || c.Session.MaxReprompts < 0 {
		return fmt.Errorf("session timeouts and max_reprompts must not be negative")
	}
	if strings.EqualFold(c.Transports.Provider, "twilio") {
		if strings.TrimSpace(c.Vendors.STT.Provider) == "" || strings.TrimSpace(c.Vendors.TTS.Provider) == "" {
			return fmt.Errorf("twilio transport needs vendors.stt.provider and vendors.tts.provider")
		}
	}
	if c.MQTT.Enabled {
		if err := configutil.RequireString(c.MQTT.BrokerURL, "mqtt.broker_url"); err != nil {
			return err
		}
	}
	return nil
}

func expandEnvStrings(cfg *Config) {
	expandValue(reflect.ValueOf(cfg))
	cfg.Vendors.STT.Settings = expandSettings(cfg.Vendors.STT.Settings)
	cfg.Vendors.TTS.Settings = expandSettings(cfg.Vendors.TTS.Settings)
	cfg.Transports.Settings = expandSettings(cfg.Transports.Settings)
}

func expandSettings(settings map[string]any) map[string]any {
	if settings == nil {
		return nil
	}
	for k, v := range settings {
		settings[k] = expandAny(v)
	}
	return settings
}

func expandAny(v any) any {
	switch val := v.(type) {
	case string:
		return os.ExpandEnv(val)
	case []any:
		for i := range val {
			val[i] = expandAny(val[i])
		}
		return val
	case map[string]any:
		for k, v := range val {
			val[k] = expandAny(v)
		}
		return val
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, v := range val {
			ks, ok := k.(string)
			if !ok {
				continue
			}
			out[ks] = expandAny(v)
		}
		return out
	default:
		return v
	}
}

func expandValue(v reflect.Value) {
	if !v.IsValid() {
		return
	}
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return
		}
		expandValue(v.Elem())
		return
	}
	switch v.Kind() {
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			expandValue(v.Field(i))
		}
	case reflect.String:
		if v.CanSet() {
			v.SetString(os.ExpandEnv(v.String()))
		}
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			expandValue(v.Index(i))
		}
	case reflect.Map:
		if v.Type().Key().Kind() == reflect.String && v.Type().Elem().Kind() == reflect.String {
			for _, key := range v.MapKeys() {
				expanded := os.ExpandEnv(v.MapIndex(key).String())
				v.SetMapIndex(key, reflect.ValueOf(expanded))
			}
		}
	}
}
