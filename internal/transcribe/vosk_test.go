package transcribe

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/snarg/speech-demo/internal/audio"
)

// fakeVoskServer mimics vosk-server: one reply per message, a final result
// after {"eof":1}. Every second audio frame completes an utterance.
func fakeVoskServer(t *testing.T, gotRate *int, frames *int) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		utterances := []string{"budget is approved", "ship on friday"}
		for {
			mt, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if mt == websocket.TextMessage {
				var m map[string]json.RawMessage
				json.Unmarshal(msg, &m)
				if cfg, ok := m["config"]; ok {
					var c voskConfig
					json.Unmarshal(cfg, &c)
					*gotRate = c.SampleRate
					continue
				}
				if _, ok := m["eof"]; ok {
					conn.WriteMessage(websocket.TextMessage, []byte(`{"text":"thanks everyone"}`))
					continue
				}
			}
			*frames++
			if *frames%2 == 0 && len(utterances) > 0 {
				reply := `{"text":"` + utterances[0] + `","result":[{"word":"x","start":0,"end":1,"conf":1}]}`
				utterances = utterances[1:]
				conn.WriteMessage(websocket.TextMessage, []byte(reply))
			} else {
				conn.WriteMessage(websocket.TextMessage, []byte(`{"partial":""}`))
			}
		}
	}))
}

func wsURL(httpURL string) string {
	return "ws" + strings.TrimPrefix(httpURL, "http")
}

func TestVoskClient_Transcribe(t *testing.T) {
	var rate, frames int
	srv := fakeVoskServer(t, &rate, &frames)
	defer srv.Close()

	// 4 full frames plus a partial one
	pcm := make([]byte, voskChunkSize*4+100)
	path := writeAudio(t, "take.wav", audio.EncodeWAV(pcm, 16000, 1))

	vc := NewVoskClient(wsURL(srv.URL), "vosk-model-small-en-us", 16000)
	resp, err := vc.Transcribe(context.Background(), path, TranscribeOpts{})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if want := "budget is approved ship on friday thanks everyone"; resp.Text != want {
		t.Errorf("Text = %q, want %q", resp.Text, want)
	}
	if rate != 16000 {
		t.Errorf("config sample_rate = %d, want 16000", rate)
	}
	if frames != 5 {
		t.Errorf("frames = %d, want 5", frames)
	}
	if len(resp.Words) != 2 {
		t.Errorf("Words = %d, want 2", len(resp.Words))
	}
	if !NeedsWAV(vc) || vc.SampleRate() != 16000 {
		t.Error("vosk should require 16 kHz WAV")
	}
}

func TestVoskClient_SampleRateMismatch(t *testing.T) {
	path := writeAudio(t, "cd.wav", audio.EncodeWAV(make([]byte, 100), 44100, 1))
	vc := NewVoskClient("ws://127.0.0.1:1", "m", 16000)

	_, err := vc.Transcribe(context.Background(), path, TranscribeOpts{})
	if !audio.IsProcessingError(err) {
		t.Fatalf("error = %v, want ProcessingError", err)
	}
	if !strings.Contains(err.Error(), "Vosk expects 16000 Hz; got 44100 Hz") {
		t.Errorf("error = %q", err.Error())
	}
}

func TestVoskClient_NotWAV(t *testing.T) {
	path := writeAudio(t, "clip.mp3", []byte("ID3 this is not a wav file"))
	vc := NewVoskClient("ws://127.0.0.1:1", "m", 16000)

	_, err := vc.Transcribe(context.Background(), path, TranscribeOpts{})
	if !audio.IsProcessingError(err) {
		t.Fatalf("error = %v, want ProcessingError", err)
	}
}

func TestVoskClient_Cancelled(t *testing.T) {
	path := writeAudio(t, "take.wav", audio.EncodeWAV(make([]byte, 10), 16000, 1))
	vc := NewVoskClient("ws://127.0.0.1:1", "m", 16000)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := vc.Transcribe(ctx, path, TranscribeOpts{}); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}
