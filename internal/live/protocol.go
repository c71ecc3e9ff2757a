package live

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/eleven-am/interview-coach/internal/audio"
)

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type content struct {
	Parts []part `json:"parts"`
}

type setupMessage struct {
	Setup setup `json:"setup"`
}

type setup struct {
	Model             string           `json:"model"`
	GenerationConfig  generationConfig `json:"generationConfig"`
	SystemInstruction *content         `json:"systemInstruction,omitempty"`
}

type generationConfig struct {
	ResponseModalities []string      `json:"responseModalities"`
	SpeechConfig       *speechConfig `json:"speechConfig,omitempty"`
}

type speechConfig struct {
	VoiceConfig voiceConfig `json:"voiceConfig"`
}

type voiceConfig struct {
	PrebuiltVoiceConfig prebuiltVoice `json:"prebuiltVoiceConfig"`
}

type prebuiltVoice struct {
	VoiceName string `json:"voiceName"`
}

type realtimeInputMessage struct {
	RealtimeInput realtimeInput `json:"realtimeInput"`
}

type realtimeInput struct {
	Audio inlineData `json:"audio"`
}

type serverMessage struct {
	SetupComplete *json.RawMessage `json:"setupComplete,omitempty"`
	ServerContent *serverContent   `json:"serverContent,omitempty"`
	GoAway        *goAway          `json:"goAway,omitempty"`
	Error         *APIError        `json:"error,omitempty"`
}

type serverContent struct {
	ModelTurn    *content `json:"modelTurn,omitempty"`
	Interrupted  bool     `json:"interrupted,omitempty"`
	TurnComplete bool     `json:"turnComplete,omitempty"`
}

type goAway struct {
	TimeLeft string `json:"timeLeft,omitempty"`
}

func newSetupMessage(cfg Config) setupMessage {
	msg := setupMessage{
		Setup: setup{
			Model: cfg.Model,
			GenerationConfig: generationConfig{
				ResponseModalities: []string{"AUDIO"},
				SpeechConfig: &speechConfig{
					VoiceConfig: voiceConfig{
						PrebuiltVoiceConfig: prebuiltVoice{VoiceName: cfg.Voice},
					},
				},
			},
		},
	}
	if cfg.SystemPrompt != "" {
		msg.Setup.SystemInstruction = &content{Parts: []part{{Text: cfg.SystemPrompt}}}
	}
	return msg
}

func encodeAudio(pcm []byte) ([]byte, error) {
	return json.Marshal(realtimeInputMessage{
		RealtimeInput: realtimeInput{
			Audio: inlineData{
				MimeType: audio.PCMMimeType(audio.InputSampleRate),
				Data:     base64.StdEncoding.EncodeToString(pcm),
			},
		},
	})
}

type audioPart struct {
	pcm        []byte
	sampleRate int
}

// audioParts extracts decoded PCM payloads from a model turn. Payloads
// without a rate tag are assumed to be at the output rate.
func (c *serverContent) audioParts() ([]audioPart, error) {
	if c.ModelTurn == nil {
		return nil, nil
	}
	var out []audioPart
	for _, p := range c.ModelTurn.Parts {
		if p.InlineData == nil || p.InlineData.Data == "" {
			continue
		}
		pcm, err := base64.StdEncoding.DecodeString(p.InlineData.Data)
		if err != nil {
			return out, fmt.Errorf("decode inline audio: %w", err)
		}
		rate, ok := audio.ParseRate(p.InlineData.MimeType)
		if !ok {
			rate = audio.OutputSampleRate
		}
		out = append(out, audioPart{pcm: pcm, sampleRate: rate})
	}
	return out, nil
}
