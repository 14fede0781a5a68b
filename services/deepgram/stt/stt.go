package stt

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"voicechat/core"
	"voicechat/utils/audio"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
)

const sendChunkBytes = 8192

// DeepgramConfig holds configuration options for Deepgram recognition.
type DeepgramConfig struct {
	APIKey      string        `json:"api_key" yaml:"api_key"`
	BaseURL     string        `json:"base_url" yaml:"base_url"`
	Model       string        `json:"model" yaml:"model"`
	Language    string        `json:"language" yaml:"language"`
	Punctuate   bool          `json:"punctuate" yaml:"punctuate"`
	SmartFormat bool          `json:"smart_format" yaml:"smart_format"`
	Encoding    string        `json:"encoding" yaml:"encoding"` // "linear16" or "mulaw"
	Keywords    []string      `json:"keywords" yaml:"keywords"`
	Timeout     time.Duration `json:"timeout" yaml:"timeout"` // whole recognition round trip
}

// DefaultConfig returns a default configuration for Deepgram recognition.
func DefaultConfig() DeepgramConfig {
	return DeepgramConfig{
		BaseURL:     "wss://api.deepgram.com",
		Model:       "nova-2",
		Language:    "en-US",
		Punctuate:   true,
		SmartFormat: true,
		Encoding:    "linear16",
		Timeout:     15 * time.Second,
	}
}

// DeepgramSTTService recognizes one captured clip per call over the
// streaming websocket API: it streams the clip, closes the stream and
// collects the final results.
type DeepgramSTTService struct {
	config DeepgramConfig
	logger *core.Logger
	dialer *websocket.Dialer
}

func NewDeepgramSTTService(config DeepgramConfig, logger *core.Logger) *DeepgramSTTService {
	d := DefaultConfig()
	if config.BaseURL == "" {
		config.BaseURL = d.BaseURL
	}
	if config.Model == "" {
		config.Model = d.Model
	}
	if config.Encoding == "" {
		config.Encoding = d.Encoding
	}
	if config.Timeout <= 0 {
		config.Timeout = d.Timeout
	}
	if logger == nil {
		logger = core.GetLogger()
	}
	return &DeepgramSTTService{
		config: config,
		logger: logger.With(map[string]interface{}{"component": "deepgram_stt"}),
		dialer: &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
	}
}

func (d *DeepgramSTTService) Init(ctx context.Context) error {
	if d.config.APIKey == "" {
		return errors.New("Deepgram API key is required")
	}
	if d.config.Encoding != "linear16" && d.config.Encoding != "mulaw" {
		return fmt.Errorf("unsupported Deepgram encoding %q", d.config.Encoding)
	}
	return nil
}

func (d *DeepgramSTTService) Cleanup() error {
	return nil
}

// Recognize returns the transcript of clip. It fails with
// core.ErrUnintelligible when Deepgram hears no words and with a
// *core.RecognitionError when the service cannot be used.
func (d *DeepgramSTTService) Recognize(ctx context.Context, clip core.AudioChunk) (string, error) {
	if len(clip.Data) == 0 {
		return "", core.ErrUnintelligible
	}

	pcm, err := audio.ToPCM(clip)
	if err != nil {
		return "", &core.RecognitionError{Err: err}
	}
	if err := audio.ValidatePCMData(pcm.Data, max(pcm.Channels, 1)); err != nil {
		return "", &core.RecognitionError{Err: fmt.Errorf("invalid clip: %w", err)}
	}
	payload := pcm
	if d.config.Encoding == "mulaw" {
		if payload, err = audio.FromPCM(pcm, core.ULAW); err != nil {
			return "", &core.RecognitionError{Err: err}
		}
	}

	ctx, cancel := context.WithTimeout(ctx, d.config.Timeout)
	defer cancel()

	wsURL, err := d.buildWebSocketURL(payload.SampleRate, payload.Channels)
	if err != nil {
		return "", &core.RecognitionError{Err: err}
	}
	headers := http.Header{"Authorization": {"Token " + d.config.APIKey}}

	conn, resp, err := d.dialer.DialContext(ctx, wsURL, headers)
	if err != nil {
		if resp != nil {
			err = fmt.Errorf("%w (status %d)", err, resp.StatusCode)
		}
		return "", &core.RecognitionError{Err: fmt.Errorf("connect to Deepgram: %w", err)}
	}
	defer conn.Close()

	// unblock the reader if the caller gives up
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	writeErr := make(chan error, 1)
	go func() {
		writeErr <- sendAudio(conn, payload.Data)
	}()

	transcript, err := d.readTranscript(conn)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", &core.RecognitionError{Err: ctxErr}
	}
	if err != nil {
		return "", &core.RecognitionError{Err: err}
	}
	if werr := <-writeErr; werr != nil && transcript == "" {
		return "", &core.RecognitionError{Err: werr}
	}
	if transcript == "" {
		return "", core.ErrUnintelligible
	}

	d.logger.Debug("recognized", "chars", len(transcript), "audio_ms", clip.Duration().Milliseconds())
	return transcript, nil
}

func sendAudio(conn *websocket.Conn, data []byte) error {
	for start := 0; start < len(data); start += sendChunkBytes {
		end := start + sendChunkBytes
		if end > len(data) {
			end = len(data)
		}
		if err := conn.WriteMessage(websocket.BinaryMessage, data[start:end]); err != nil {
			return fmt.Errorf("send audio: %w", err)
		}
	}
	msg, err := sonic.Marshal(ListenV1CloseStream{Type: "CloseStream"})
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, msg)
}

// readTranscript collects final results until Deepgram sends its closing
// Metadata message or closes the socket.
func (d *DeepgramSTTService) readTranscript(conn *websocket.Conn) (string, error) {
	var parts []string
	for {
		messageType, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return strings.Join(parts, " "), nil
			}
			return "", fmt.Errorf("read from Deepgram: %w", err)
		}
		if messageType != websocket.TextMessage {
			continue
		}

		var base struct {
			Type string `json:"type"`
		}
		if err := sonic.Unmarshal(message, &base); err != nil {
			return "", fmt.Errorf("parse Deepgram message: %w", err)
		}

		switch base.Type {
		case "Results":
			var result ListenV1Results
			if err := sonic.Unmarshal(message, &result); err != nil {
				return "", fmt.Errorf("parse results: %w", err)
			}
			if !result.IsFinal || len(result.Channel.Alternatives) == 0 {
				continue
			}
			if text := strings.TrimSpace(result.Channel.Alternatives[0].Transcript); text != "" {
				parts = append(parts, text)
			}
		case "Metadata":
			return strings.Join(parts, " "), nil
		case "Error":
			var e ListenV1Error
			_ = sonic.Unmarshal(message, &e)
			detail := e.Description
			if detail == "" {
				detail = e.Message
			}
			return "", fmt.Errorf("Deepgram error: %s", detail)
		default:
			d.logger.Debug("ignoring Deepgram message", "type", base.Type)
		}
	}
}

func (d *DeepgramSTTService) buildWebSocketURL(sampleRate, channels int) (string, error) {
	base, err := url.Parse(strings.TrimSuffix(d.config.BaseURL, "/") + "/v1/listen")
	if err != nil {
		return "", err
	}

	q := base.Query()
	if d.config.Model != "" {
		q.Set("model", d.config.Model)
	}
	if d.config.Language != "" {
		q.Set("language", d.config.Language)
	}
	q.Set("punctuate", strconv.FormatBool(d.config.Punctuate))
	q.Set("smart_format", strconv.FormatBool(d.config.SmartFormat))
	q.Set("interim_results", "false")
	q.Set("encoding", d.config.Encoding)
	q.Set("sample_rate", strconv.Itoa(sampleRate))
	q.Set("channels", strconv.Itoa(channels))
	for _, keyword := range d.config.Keywords {
		q.Add("keywords", keyword)
	}

	base.RawQuery = q.Encode()
	return base.String(), nil
}
