package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Quiz struct {
		CacheTTL     string `yaml:"cache_ttl"`
		AnswerDelay  string `yaml:"answer_delay"`
		TimeoutDelay string `yaml:"timeout_delay"`
	} `yaml:"quiz"`
	LLM struct {
		ProxyURL    string `yaml:"proxy_url"`
		UpstreamURL string `yaml:"upstream_url"`
		Model       string `yaml:"model"`
		Timeout     string `yaml:"timeout"`
		APIKey      string `yaml:"-"`
	} `yaml:"llm"`
	Levels struct {
		Path string `yaml:"path"`
	} `yaml:"levels"`
}

// Load reads YAML config from path. The upstream API key is taken from
// GEMINI_API_KEY (or API_KEY) and never from the file.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.LLM.UpstreamURL == "" {
		c.LLM.UpstreamURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "gemini-2.5-flash"
	}
	c.LLM.APIKey = os.Getenv("GEMINI_API_KEY")
	if c.LLM.APIKey == "" {
		c.LLM.APIKey = os.Getenv("API_KEY")
	}
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
