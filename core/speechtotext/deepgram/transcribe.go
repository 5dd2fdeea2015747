// Package deepgram transcribes a buffered radio transmission over the
// Deepgram listen websocket.
package deepgram

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	api "github.com/deepgram/deepgram-go-sdk/pkg/api/listen/v1/websocket/interfaces"
	"github.com/gorilla/websocket"

	"github.com/aeropractica/atc-core/core/speechtotext"
)

const listenURL = "wss://api.deepgram.com/v1/listen"

// audio chunk size per websocket frame, ~100ms of linear16 at 16kHz
const chunkSize = 3200

type TranscriptionClient struct {
	apiKey  string
	options speechtotext.Options
}

func NewTranscriptionClient(apiKey string, opts ...speechtotext.Option) *TranscriptionClient {
	options := speechtotext.Options{
		Language:   speechtotext.DefaultLanguage,
		Model:      "nova-3",
		SampleRate: speechtotext.DefaultSampleRate,
		Encoding:   speechtotext.DefaultEncoding,
	}
	for _, opt := range opts {
		opt(&options)
	}
	return &TranscriptionClient{apiKey: apiKey, options: options}
}

// Transcribe sends one complete transmission and returns the full
// transcript once the stream closes.
func (c *TranscriptionClient) Transcribe(ctx context.Context, audio []byte) (string, error) {
	ctx, span := tracer.Start(ctx, "transcribe transmission")
	defer span.End()

	conn, err := c.connect(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %v", speechtotext.ErrUnavailable, err)
	}
	defer conn.Close()

	if err := c.sendAudio(conn, audio); err != nil {
		return "", fmt.Errorf("%w: %v", speechtotext.ErrUnavailable, err)
	}

	transcript, err := c.collectTranscript(ctx, conn)
	if err != nil {
		span.RecordError(err)
		return "", err
	}
	return transcript, nil
}

func (c *TranscriptionClient) connect(ctx context.Context) (*websocket.Conn, error) {
	endpoint, _ := url.Parse(listenURL)
	queryParams := endpoint.Query()
	queryParams.Set("encoding", c.options.Encoding)
	queryParams.Set("sample_rate", strconv.Itoa(c.options.SampleRate))
	queryParams.Set("channels", "1")
	queryParams.Set("model", c.options.Model)
	queryParams.Set("language", c.options.Language)
	queryParams.Set("smart_format", "true")
	for _, keyword := range c.options.Keywords {
		queryParams.Add("keyterm", keyword)
	}
	endpoint.RawQuery = queryParams.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint.String(),
		http.Header{"Authorization": {"Token " + c.apiKey}})
	if err != nil {
		return nil, fmt.Errorf("failed to open socket connection to deepgram: %w", err)
	}
	return conn, nil
}

func (c *TranscriptionClient) sendAudio(conn *websocket.Conn, audio []byte) error {
	for offset := 0; offset < len(audio); offset += chunkSize {
		end := offset + chunkSize
		if end > len(audio) {
			end = len(audio)
		}
		if err := conn.WriteMessage(websocket.BinaryMessage, audio[offset:end]); err != nil {
			return fmt.Errorf("failed to write to deepgram client: %w", err)
		}
	}

	if err := conn.WriteJSON(struct {
		Type string `json:"type"`
	}{Type: string(api.TypeCloseStreamResponse)}); err != nil {
		return fmt.Errorf("failed to close deepgram stream: %w", err)
	}
	return nil
}

func (c *TranscriptionClient) collectTranscript(ctx context.Context, conn *websocket.Conn) (string, error) {
	var parts []string
	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		msgType, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return strings.TrimSpace(strings.Join(parts, " ")), nil
			}
			return "", fmt.Errorf("%w: failed to read deepgram message: %v", speechtotext.ErrUnavailable, err)
		}
		if msgType == websocket.BinaryMessage {
			continue
		}

		var parsedMsg struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(msg, &parsedMsg); err != nil {
			continue
		}

		switch api.TypeResponse(parsedMsg.Type) {
		case api.TypeMessageResponse:
			var msgResp api.MessageResponse
			if err := json.Unmarshal(msg, &msgResp); err != nil {
				continue
			}
			if !msgResp.IsFinal || len(msgResp.Channel.Alternatives) == 0 {
				continue
			}
			if transcript := strings.TrimSpace(msgResp.Channel.Alternatives[0].Transcript); transcript != "" {
				parts = append(parts, transcript)
			}
		case api.TypeCloseStreamResponse:
			return strings.TrimSpace(strings.Join(parts, " ")), nil
		}
	}
}
