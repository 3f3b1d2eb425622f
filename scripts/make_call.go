// Command make_call rings a phone and connects it to the assistant's
// Twilio voice webhook.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	twiliotransport "github.com/harunnryd/domov/pkg/transports/twilio"
)

type callConfig struct {
	Transports struct {
		Provider string         `mapstructure:"provider"`
		Settings map[string]any `mapstructure:"settings"`
	} `mapstructure:"transports"`
}

func main() {
	configPath := flag.String("config", "examples/smarthome/config.example.yaml", "")
	from := flag.String("from", "", "caller ID")
	to := flag.String("to", "", "destination number")
	voiceURL := flag.String("voice_url", "", "override the voice webhook")
	flag.Parse()
	if *from == "" || *to == "" {
		fmt.Println("usage: make_call -from=+420123 -to=+420456 [-config=...]")
		os.Exit(1)
	}
	_ = godotenv.Load()
	cfg, err := loadCallConfig(*configPath)
	if err != nil {
		fmt.Println("config error:", err)
		os.Exit(1)
	}
	if p := strings.ToLower(strings.TrimSpace(cfg.Transports.Provider)); p != "twilio" {
		fmt.Printf("transports.provider is %q, expected twilio\n", p)
		os.Exit(1)
	}
	settings, err := twiliotransport.ParseConfig(expand(cfg.Transports.Settings))
	if err != nil {
		fmt.Println("settings error:", err)
		os.Exit(1)
	}
	if *voiceURL == "" && settings.PublicURL == "" {
		fmt.Println("public_url is empty")
		os.Exit(1)
	}
	callSID, err := twiliotransport.NewDialer(settings).Dial(context.Background(), *to, *from, *voiceURL)
	if err != nil {
		fmt.Println("call error:", err)
		os.Exit(1)
	}
	fmt.Println("call_sid:", callSID)
}

func loadCallConfig(path string) (callConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return callConfig{}, err
	}
	var cfg callConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return callConfig{}, err
	}
	return cfg, nil
}

func expand(settings map[string]any) map[string]any {
	out := make(map[string]any, len(settings))
	for k, v := range settings {
		if s, ok := v.(string); ok {
			v = os.ExpandEnv(s)
		}
		out[k] = v
	}
	return out
}
