// Package deepgram synthesizes controller phrases over the Deepgram speak
// REST API.
package deepgram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/aeropractica/atc-core/core/texttospeech"
)

const speakURL = "https://api.deepgram.com/v1/speak"

const defaultVoice = "aura-2-celeste-es"

type TextToSpeechClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	options    texttospeech.Options
}

func NewTextToSpeechClient(apiKey string, opts ...texttospeech.Option) *TextToSpeechClient {
	options := texttospeech.Options{
		Voice:      defaultVoice,
		SampleRate: texttospeech.DefaultSampleRate,
		Encoding:   texttospeech.DefaultEncoding,
	}
	for _, opt := range opts {
		opt(&options)
	}
	return &TextToSpeechClient{
		apiKey:     apiKey,
		baseURL:    speakURL,
		httpClient: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		options:    options,
	}
}

// Synthesize renders text to speech and returns a handle to the stored
// audio.
func (c *TextToSpeechClient) Synthesize(ctx context.Context, text string) (string, error) {
	ctx, span := tracer.Start(ctx, "synthesize phrase")
	defer span.End()

	endpoint, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid speak endpoint: %w", err)
	}
	queryParams := endpoint.Query()
	queryParams.Set("model", c.options.Voice)
	queryParams.Set("encoding", c.options.Encoding)
	queryParams.Set("sample_rate", strconv.Itoa(c.options.SampleRate))
	endpoint.RawQuery = queryParams.Encode()

	reqBody, err := json.Marshal(struct {
		Text string `json:"text"`
	}{Text: text})
	if err != nil {
		return "", fmt.Errorf("error marshalling JSON: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewBuffer(reqBody))
	if err != nil {
		return "", fmt.Errorf("error creating HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Token "+c.apiKey)

	span.SetAttributes(attribute.String("request.voice", c.options.Voice))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		err = fmt.Errorf("%w: %v", texttospeech.ErrUnavailable, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("response.status_code", resp.StatusCode))
	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("%w: non-OK HTTP status: %s", texttospeech.ErrUnavailable, resp.Status)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: error reading audio: %v", texttospeech.ErrUnavailable, err)
	}

	if c.options.StoreAudio != nil {
		return c.options.StoreAudio(audio)
	}
	return storeTempFile(audio)
}

func storeTempFile(audio []byte) (string, error) {
	file, err := os.CreateTemp("", "atc-phrase-*.pcm")
	if err != nil {
		return "", fmt.Errorf("error storing audio: %w", err)
	}
	defer file.Close()

	if _, err := file.Write(audio); err != nil {
		return "", fmt.Errorf("error storing audio: %w", err)
	}
	return file.Name(), nil
}
