package live

import "time"

const (
	DefaultURL   = "wss://generativelanguage.googleapis.com/ws/google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent"
	DefaultModel = "models/gemini-2.0-flash-live-001"
	DefaultVoice = "Puck"
)

type Config struct {
	URL          string
	APIKey       string
	Model        string
	Voice        string
	SystemPrompt string
	DialTimeout  time.Duration
	WriteWait    time.Duration
	SendBuffer   int
}

func DefaultConfig() Config {
	return Config{
		URL:         DefaultURL,
		Model:       DefaultModel,
		Voice:       DefaultVoice,
		DialTimeout: 15 * time.Second,
		WriteWait:   10 * time.Second,
		SendBuffer:  64,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.URL == "" {
		c.URL = d.URL
	}
	if c.Model == "" {
		c.Model = d.Model
	}
	if c.Voice == "" {
		c.Voice = d.Voice
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = d.DialTimeout
	}
	if c.WriteWait <= 0 {
		c.WriteWait = d.WriteWait
	}
	if c.SendBuffer <= 0 {
		c.SendBuffer = d.SendBuffer
	}
	return c
}
