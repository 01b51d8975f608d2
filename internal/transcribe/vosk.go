package transcribe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/snarg/speech-demo/internal/audio"
)

// voskChunkSize is the number of PCM bytes sent per websocket frame.
const voskChunkSize = 4000

// VoskClient streams PCM16 WAV audio to a vosk-server websocket endpoint.
// The server owns the acoustic model; model is only a label for logs and
// history rows.
type VoskClient struct {
	url        string
	model      string
	sampleRate int
	dialer     *websocket.Dialer
}

type voskConfigMessage struct {
	Config voskConfig `json:"config"`
}

type voskConfig struct {
	SampleRate int `json:"sample_rate"`
	Words      int `json:"words"`
}

type voskResult struct {
	Text    string     `json:"text"`
	Partial string     `json:"partial"`
	Result  []voskWord `json:"result"`
}

type voskWord struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Conf  float64 `json:"conf"`
}

// NewVoskClient creates a client for the vosk-server at url (ws:// or wss://).
func NewVoskClient(url, model string, sampleRate int) *VoskClient {
	if sampleRate <= 0 {
		sampleRate = audio.DefaultSampleRate
	}
	return &VoskClient{
		url:        url,
		model:      model,
		sampleRate: sampleRate,
		dialer:     websocket.DefaultDialer,
	}
}

func (vc *VoskClient) Name() string      { return "vosk" }
func (vc *VoskClient) Model() string     { return vc.model }
func (vc *VoskClient) RequiresWAV() bool { return true }
func (vc *VoskClient) SampleRate() int   { return vc.sampleRate }

// Transcribe streams a mono PCM16 WAV at the configured sample rate and
// joins the recognised utterances with single spaces.
func (vc *VoskClient) Transcribe(ctx context.Context, audioPath string, opts TranscribeOpts) (*Response, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return nil, fmt.Errorf("open audio file: %w", err)
	}
	defer f.Close()

	info, err := audio.ReadWAVInfo(f)
	if err != nil {
		return nil, &audio.ProcessingError{Msg: "vosk expects a WAV file: " + err.Error(), Err: err}
	}
	if int(info.SampleRate) != vc.sampleRate {
		return nil, &audio.ProcessingError{Msg: fmt.Sprintf(
			"Vosk expects %d Hz; got %d Hz. Convert audio before transcribing.", vc.sampleRate, info.SampleRate)}
	}
	if !info.IsPCM16Mono() {
		return nil, &audio.ProcessingError{Msg: fmt.Sprintf(
			"Vosk expects mono 16-bit PCM; got %d channel(s) at %d bits.", info.Channels, info.BitsPerSample)}
	}

	conn, _, err := vc.dialer.DialContext(ctx, vc.url, nil)
	if err != nil {
		return nil, fmt.Errorf("vosk dial %s: %w", vc.url, err)
	}
	defer conn.Close()

	// Unblock reads and writes when ctx is cancelled mid-stream.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	if err := conn.WriteJSON(voskConfigMessage{Config: voskConfig{SampleRate: vc.sampleRate, Words: 1}}); err != nil {
		return nil, fmt.Errorf("vosk send config: %w", err)
	}

	var parts []string
	var words []Word
	collect := func(res voskResult) {
		if t := strings.TrimSpace(res.Text); t != "" {
			parts = append(parts, t)
		}
		for _, w := range res.Result {
			words = append(words, Word{Word: w.Word, Start: w.Start, End: w.End})
		}
	}

	pcm := io.LimitReader(f, int64(info.DataSize))
	buf := make([]byte, voskChunkSize)
	for {
		n, readErr := io.ReadFull(pcm, buf)
		if n > 0 {
			if err := conn.WriteMessage(websocket.BinaryMessage, buf[:n]); err != nil {
				return nil, vc.streamErr(ctx, "vosk send audio", err)
			}
			res, err := vc.readResult(conn)
			if err != nil {
				return nil, vc.streamErr(ctx, "vosk read result", err)
			}
			collect(res)
		}
		if readErr == io.EOF || readErr == io.ErrUnexpectedEOF {
			break
		}
		if readErr != nil {
			return nil, fmt.Errorf("read pcm: %w", readErr)
		}
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"eof" : 1}`)); err != nil {
		return nil, vc.streamErr(ctx, "vosk send eof", err)
	}
	final, err := vc.readResult(conn)
	if err != nil {
		return nil, vc.streamErr(ctx, "vosk read final result", err)
	}
	collect(final)

	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))

	return &Response{
		Text:     strings.TrimSpace(strings.Join(parts, " ")),
		Language: opts.Language,
		Duration: info.Duration(),
		Words:    words,
	}, nil
}

func (vc *VoskClient) readResult(conn *websocket.Conn) (voskResult, error) {
	var res voskResult
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return res, err
	}
	if err := json.Unmarshal(msg, &res); err != nil {
		return res, fmt.Errorf("decode result: %w", err)
	}
	return res, nil
}

// streamErr prefers the context error when the connection was closed by cancellation.
func (vc *VoskClient) streamErr(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s: %w", op, ctxErr)
	}
	return fmt.Errorf("%s: %w", op, err)
}
