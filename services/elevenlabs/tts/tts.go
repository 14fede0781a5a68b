package elevenlabs

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"voicechat/core"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
)

// ElevenLabsTTSConfig holds configuration for the ElevenLabs TTS service
type ElevenLabsTTSConfig struct {
	APIKey  string `json:"api_key" yaml:"api_key"`
	BaseURL string `json:"base_url" yaml:"base_url"`
	VoiceID string `json:"voice_id" yaml:"voice_id"`
	ModelID string `json:"model_id" yaml:"model_id"`

	// Voice settings
	Stability       float64 `json:"stability" yaml:"stability"`
	SimilarityBoost float64 `json:"similarity_boost" yaml:"similarity_boost"`
	Speed           float64 `json:"speed" yaml:"speed"` // 0.7 to 1.2, 0 leaves the voice default

	OutputFormat string        `json:"output_format" yaml:"output_format"` // pcm_16000, pcm_22050, pcm_24000, pcm_44100 or ulaw_8000
	Timeout      time.Duration `json:"timeout" yaml:"timeout"`             // one utterance, end to end
}

// ElevenLabsTTS synthesizes one utterance per call over the ElevenLabs
// stream-input websocket API.
type ElevenLabsTTS struct {
	config     ElevenLabsTTSConfig
	logger     *core.Logger
	dialer     *websocket.Dialer
	format     core.AudioEncodingFormat
	sampleRate int
}

// Client messages
type (
	elBOSMessage struct {
		Text             string          `json:"text"`
		VoiceSettings    elVoiceSettings `json:"voice_settings"`
		GenerationConfig elGenConfig     `json:"generation_config"`
	}

	elVoiceSettings struct {
		Stability       float64 `json:"stability"`
		SimilarityBoost float64 `json:"similarity_boost"`
		Speed           float64 `json:"speed,omitempty"`
	}

	elGenConfig struct {
		ChunkLengthSchedule []int `json:"chunk_length_schedule"`
	}

	elTextMessage struct {
		Text  string `json:"text"`
		Flush bool   `json:"flush,omitempty"`
	}
)

// Server messages
type (
	elAudioMessage struct {
		Audio   string `json:"audio"`
		IsFinal bool   `json:"isFinal"`
	}

	elErrorMessage struct {
		Error   string `json:"error"`
		Code    int    `json:"code"`
		Message string `json:"message"`
	}
)

func NewElevenLabsTTS(config ElevenLabsTTSConfig, logger *core.Logger) *ElevenLabsTTS {
	if config.BaseURL == "" {
		config.BaseURL = "wss://api.elevenlabs.io/v1/text-to-speech"
	}
	if config.VoiceID == "" {
		config.VoiceID = "21m00Tcm4TlvDq8ikWAM" // Rachel
	}
	if config.ModelID == "" {
		config.ModelID = "eleven_turbo_v2_5"
	}
	if config.Stability == 0 {
		config.Stability = 0.5
	}
	if config.SimilarityBoost == 0 {
		config.SimilarityBoost = 0.75
	}
	if config.OutputFormat == "" {
		config.OutputFormat = "pcm_24000"
	}
	if config.Timeout <= 0 {
		config.Timeout = 60 * time.Second
	}
	if logger == nil {
		logger = core.GetLogger()
	}
	return &ElevenLabsTTS{
		config: config,
		logger: logger.With(map[string]interface{}{"component": "elevenlabs_tts"}),
		dialer: &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
	}
}

// parseOutputFormat is the inverse of the ElevenLabs output_format names.
func parseOutputFormat(s string) (core.AudioEncodingFormat, int, error) {
	codec, rate, ok := strings.Cut(s, "_")
	if !ok {
		return 0, 0, fmt.Errorf("invalid output format %q", s)
	}
	sampleRate, err := strconv.Atoi(rate)
	if err != nil || sampleRate <= 0 {
		return 0, 0, fmt.Errorf("invalid output format %q", s)
	}
	switch codec {
	case "pcm":
		return core.PCM, sampleRate, nil
	case "ulaw":
		return core.ULAW, sampleRate, nil
	default:
		return 0, 0, fmt.Errorf("unsupported output codec %q", codec)
	}
}

func (e *ElevenLabsTTS) Init(ctx context.Context) error {
	if e.config.APIKey == "" {
		return errors.New("ElevenLabs API key is required")
	}
	format, rate, err := parseOutputFormat(e.config.OutputFormat)
	if err != nil {
		return err
	}
	e.format, e.sampleRate = format, rate
	return nil
}

func (e *ElevenLabsTTS) Cleanup() error {
	return nil
}

// SampleRate of the chunks Synthesize emits.
func (e *ElevenLabsTTS) SampleRate() int {
	return e.sampleRate
}

// Synthesize streams text to ElevenLabs and hands every audio chunk to out
// in order. It returns once the final chunk has been delivered.
func (e *ElevenLabsTTS) Synthesize(ctx context.Context, text string, out func(core.AudioChunk) error) error {
	if e.sampleRate == 0 {
		return errors.New("service not initialized")
	}
	ctx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()

	url := fmt.Sprintf("%s/%s/stream-input?model_id=%s&output_format=%s",
		strings.TrimSuffix(e.config.BaseURL, "/"),
		e.config.VoiceID,
		e.config.ModelID,
		e.config.OutputFormat,
	)
	headers := http.Header{"xi-api-key": {e.config.APIKey}}

	conn, resp, err := e.dialer.DialContext(ctx, url, headers)
	if err != nil {
		if resp != nil {
			err = fmt.Errorf("%w (status %d)", err, resp.StatusCode)
		}
		return fmt.Errorf("connect to ElevenLabs: %w", err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	messages := []interface{}{
		elBOSMessage{
			Text: " ",
			VoiceSettings: elVoiceSettings{
				Stability:       e.config.Stability,
				SimilarityBoost: e.config.SimilarityBoost,
				Speed:           e.config.Speed,
			},
			GenerationConfig: elGenConfig{ChunkLengthSchedule: []int{120, 160, 250, 290}},
		},
		elTextMessage{Text: text + " ", Flush: true},
		elTextMessage{Text: ""}, // end of stream
	}
	for _, m := range messages {
		data, err := sonic.Marshal(m)
		if err != nil {
			return err
		}
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return fmt.Errorf("send to ElevenLabs: %w", err)
		}
	}

	chunks := 0
	for {
		messageType, message, err := conn.ReadMessage()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				e.logger.Debug("stream closed", "chunks", chunks)
				return nil
			}
			return fmt.Errorf("read from ElevenLabs: %w", err)
		}
		if messageType != websocket.TextMessage {
			continue
		}

		final, chunk, err := e.parseMessage(message)
		if err != nil {
			return err
		}
		if chunk != nil {
			chunks++
			if err := out(*chunk); err != nil {
				return err
			}
		}
		if final {
			e.logger.Debug("synthesis finished", "chunks", chunks)
			return nil
		}
	}
}

func (e *ElevenLabsTTS) parseMessage(message []byte) (bool, *core.AudioChunk, error) {
	var raw map[string]interface{}
	if err := sonic.Unmarshal(message, &raw); err != nil {
		return false, nil, fmt.Errorf("parse ElevenLabs message: %w", err)
	}

	if v, ok := raw["error"]; ok && v != nil {
		var errMsg elErrorMessage
		if err := sonic.Unmarshal(message, &errMsg); err == nil && errMsg.Message != "" {
			return false, nil, fmt.Errorf("ElevenLabs error: %s (code: %d)", errMsg.Message, errMsg.Code)
		}
		return false, nil, fmt.Errorf("ElevenLabs error: %v", v)
	}

	var audioMsg elAudioMessage
	if err := sonic.Unmarshal(message, &audioMsg); err != nil {
		return false, nil, fmt.Errorf("parse audio message: %w", err)
	}
	if audioMsg.Audio == "" {
		return audioMsg.IsFinal, nil, nil
	}
	data, err := base64.StdEncoding.DecodeString(audioMsg.Audio)
	if err != nil {
		return false, nil, fmt.Errorf("decode audio: %w", err)
	}
	return audioMsg.IsFinal, &core.AudioChunk{
		Data:       data,
		SampleRate: e.sampleRate,
		Channels:   1,
		Format:     e.format,
		Timestamp:  time.Now(),
	}, nil
}
