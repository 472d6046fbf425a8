package main

import (
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type chatConfig struct {
	TokenURL   string `koanf:"token_url"`
	ServiceURL string `koanf:"service_url"`
	Scene      string `koanf:"scene"`
	Character  string `koanf:"character"`
	Mic        bool   `koanf:"mic"`
	Verbose    bool   `koanf:"verbose"`
}

// loadConfig merges an optional yaml file (STAGELINK_CONFIG or
// ./avatar-chat.yaml) with STAGELINK_* environment variables, env winning.
func loadConfig() (chatConfig, error) {
	k := koanf.New(".")

	path := os.Getenv("STAGELINK_CONFIG")
	if path == "" {
		path = "avatar-chat.yaml"
	}
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return chatConfig{}, err
		}
	}

	if err := k.Load(env.Provider("STAGELINK_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "STAGELINK_")), "_", ".", -1)
	}), nil); err != nil {
		return chatConfig{}, err
	}

	// The env key mapper folds TOKEN_URL to token.url; flatten those back.
	for mapped, flat := range map[string]string{
		"token.url":   "token_url",
		"service.url": "service_url",
	} {
		if k.Exists(mapped) && !k.Exists(flat) {
			_ = k.Set(flat, k.String(mapped))
		}
	}

	var cfg chatConfig
	if err := k.Unmarshal("", &cfg); err != nil {
		return chatConfig{}, err
	}
	return cfg, nil
}
