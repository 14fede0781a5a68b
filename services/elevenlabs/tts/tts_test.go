package elevenlabs

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"voicechat/core"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeElevenLabs struct {
	mu       sync.Mutex
	path     string
	query    url.Values
	received []map[string]interface{}
	replies  []string
}

func (f *fakeElevenLabs) handler(t *testing.T) http.HandlerFunc {
	upgrader := websocket.Upgrader{}
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("xi-api-key") != "el-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		f.mu.Lock()
		f.path = r.URL.Path
		f.query = r.URL.Query()
		f.mu.Unlock()

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var m map[string]interface{}
			if err := sonic.Unmarshal(msg, &m); err != nil {
				t.Errorf("decode client message: %v", err)
				return
			}
			f.mu.Lock()
			f.received = append(f.received, m)
			f.mu.Unlock()
			if m["text"] == "" {
				break
			}
		}
		for _, reply := range f.replies {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(reply)); err != nil {
				return
			}
		}
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	}
}

func audioReply(data []byte, final bool) string {
	msg := map[string]interface{}{"audio": base64.StdEncoding.EncodeToString(data), "isFinal": final}
	out, _ := sonic.MarshalString(msg)
	return out
}

func newService(t *testing.T, fake *fakeElevenLabs, mutate func(*ElevenLabsTTSConfig)) *ElevenLabsTTS {
	t.Helper()
	srv := httptest.NewServer(fake.handler(t))
	t.Cleanup(srv.Close)

	cfg := ElevenLabsTTSConfig{
		APIKey:  "el-key",
		BaseURL: "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/text-to-speech",
		VoiceID: "voice-1",
		Speed:   0.75,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	svc := NewElevenLabsTTS(cfg, core.NewNopLogger())
	require.NoError(t, svc.Init(context.Background()))
	return svc
}

func TestSynthesize_DeliversChunksInOrder(t *testing.T) {
	fake := &fakeElevenLabs{replies: []string{
		audioReply([]byte{1, 2, 3, 4}, false),
		audioReply([]byte{5, 6}, false),
		`{"audio":null,"isFinal":true}`,
	}}
	svc := newService(t, fake, nil)

	var got []core.AudioChunk
	err := svc.Synthesize(context.Background(), "Hello there", func(c core.AudioChunk) error {
		got = append(got, c)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, []byte{1, 2, 3, 4}, got[0].Data)
	assert.Equal(t, []byte{5, 6}, got[1].Data)
	assert.Equal(t, 24000, got[0].SampleRate)
	assert.Equal(t, core.PCM, got[0].Format)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Equal(t, "/v1/text-to-speech/voice-1/stream-input", fake.path)
	assert.Equal(t, "pcm_24000", fake.query.Get("output_format"))
	assert.Equal(t, "eleven_turbo_v2_5", fake.query.Get("model_id"))

	require.Len(t, fake.received, 3)
	settings := fake.received[0]["voice_settings"].(map[string]interface{})
	assert.InDelta(t, 0.75, settings["speed"], 0.0001)
	assert.InDelta(t, 0.5, settings["stability"], 0.0001)
	assert.Equal(t, "Hello there ", fake.received[1]["text"])
	assert.Equal(t, "", fake.received[2]["text"])
}

func TestSynthesize_UlawOutput(t *testing.T) {
	fake := &fakeElevenLabs{replies: []string{audioReply([]byte{0xff, 0x7f}, true)}}
	svc := newService(t, fake, func(c *ElevenLabsTTSConfig) { c.OutputFormat = "ulaw_8000" })

	var got []core.AudioChunk
	require.NoError(t, svc.Synthesize(context.Background(), "hi", func(c core.AudioChunk) error {
		got = append(got, c)
		return nil
	}))
	require.Len(t, got, 1)
	assert.Equal(t, core.ULAW, got[0].Format)
	assert.Equal(t, 8000, got[0].SampleRate)
}

func TestSynthesize_CloseWithoutFinal(t *testing.T) {
	fake := &fakeElevenLabs{replies: []string{audioReply([]byte{1, 2}, false)}}
	svc := newService(t, fake, nil)

	calls := 0
	err := svc.Synthesize(context.Background(), "hi", func(core.AudioChunk) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestSynthesize_Errors(t *testing.T) {
	t.Run("service error message", func(t *testing.T) {
		fake := &fakeElevenLabs{replies: []string{`{"error":"quota_exceeded","code":1008,"message":"quota exceeded"}`}}
		svc := newService(t, fake, nil)

		err := svc.Synthesize(context.Background(), "hi", func(core.AudioChunk) error { return nil })
		require.Error(t, err)
		assert.Contains(t, err.Error(), "quota exceeded")
	})

	t.Run("rejected key", func(t *testing.T) {
		svc := newService(t, &fakeElevenLabs{}, func(c *ElevenLabsTTSConfig) { c.APIKey = "wrong" })

		err := svc.Synthesize(context.Background(), "hi", func(core.AudioChunk) error { return nil })
		require.Error(t, err)
		assert.Contains(t, err.Error(), "401")
	})

	t.Run("consumer error stops synthesis", func(t *testing.T) {
		fake := &fakeElevenLabs{replies: []string{audioReply([]byte{1}, false), audioReply([]byte{2}, true)}}
		svc := newService(t, fake, nil)
		boom := errors.New("player gone")

		err := svc.Synthesize(context.Background(), "hi", func(core.AudioChunk) error { return boom })
		assert.ErrorIs(t, err, boom)
	})

	t.Run("not initialized", func(t *testing.T) {
		svc := NewElevenLabsTTS(ElevenLabsTTSConfig{APIKey: "k"}, core.NewNopLogger())
		assert.Error(t, svc.Synthesize(context.Background(), "hi", func(core.AudioChunk) error { return nil }))
	})
}

func TestParseOutputFormat(t *testing.T) {
	tests := []struct {
		in         string
		wantFormat core.AudioEncodingFormat
		wantRate   int
		wantErr    bool
	}{
		{in: "pcm_16000", wantFormat: core.PCM, wantRate: 16000},
		{in: "pcm_44100", wantFormat: core.PCM, wantRate: 44100},
		{in: "ulaw_8000", wantFormat: core.ULAW, wantRate: 8000},
		{in: "mp3_44100_128", wantErr: true},
		{in: "pcm", wantErr: true},
		{in: "opus_48000", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			format, rate, err := parseOutputFormat(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantFormat, format)
			assert.Equal(t, tt.wantRate, rate)
		})
	}
}
