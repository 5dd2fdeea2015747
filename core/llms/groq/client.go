// Package groq calls the Groq chat-completions API, optionally constrained
// to a JSON schema so the model cannot stray from the response contract.
package groq

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/aeropractica/atc-core/core/llms"
)

const (
	url          = "https://api.groq.com/openai/v1/chat/completions"
	defaultModel = "llama-3.3-70b-versatile"
)

type Client struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration

	responseFormat *ChatResponseFormat
}

type ClientOption func(*Client)

func WithModel(model string) ClientOption {
	return func(c *Client) { c.model = model }
}

func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) { c.timeout = timeout }
}

func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = httpClient }
}

// WithResponseSchema constrains completions to the JSON schema reflected
// from prototype.
func WithResponseSchema(prototype any) ClientOption {
	return func(c *Client) { c.responseFormat = responseFormatFor(prototype) }
}

func NewClient(apiKey string, opts ...ClientOption) *Client {
	client := &Client{
		apiKey:     apiKey,
		model:      defaultModel,
		baseURL:    url,
		httpClient: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		timeout:    30 * time.Second,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Complete sends one system+user exchange and returns the raw completion
// text. Transport failures wrap the llms error classes.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	ctx, span := tracer.Start(ctx, "prompt llm structured")
	defer span.End()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	messages := []message{}
	if system != "" {
		messages = append(messages, message{Role: messageRoleSystem, Content: system})
	}
	messages = append(messages, message{Role: messageRoleUser, Content: user})

	reqBody := requestBody{
		Model:          c.model,
		Messages:       messages,
		ResponseFormat: c.responseFormat,
	}

	requestBodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		err = fmt.Errorf("error marshalling JSON: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewBuffer(requestBodyBytes))
	if err != nil {
		err = fmt.Errorf("error creating HTTP request: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	span.SetAttributes(attribute.String("request.model", c.model))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %v", llms.ErrTimeout, err)
		} else {
			err = fmt.Errorf("%w: %v", llms.ErrUnavailable, err)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("response.status_code", resp.StatusCode))
	if resp.StatusCode != http.StatusOK {
		if errorBody, readErr := io.ReadAll(resp.Body); readErr == nil {
			span.SetAttributes(attribute.String("response.error", string(errorBody)))
		}
		err := classifyStatus(resp.StatusCode, resp.Status)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	respBodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		err = fmt.Errorf("error reading response body: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	var responseBody responseBodyEnvelope
	if err := json.Unmarshal(respBodyBytes, &responseBody); err != nil {
		err = fmt.Errorf("error unmarshalling response: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	if len(responseBody.Choices) == 0 {
		err := fmt.Errorf("%w: response carried no choices", llms.ErrUnavailable)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	if responseBody.Usage != nil {
		span.SetAttributes(
			attribute.Int("response.usage.prompt_tokens", responseBody.Usage.PromptTokens),
			attribute.Int("response.usage.completion_tokens", responseBody.Usage.CompletionTokens),
		)
	}

	return responseBody.Choices[0].Message.Content, nil
}

func classifyStatus(code int, status string) error {
	switch {
	case code == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", llms.ErrRateLimited, status)
	case code >= http.StatusInternalServerError:
		return fmt.Errorf("%w: %s", llms.ErrUnavailable, status)
	default:
		return fmt.Errorf("non-OK HTTP status: %s", status)
	}
}

type requestBody struct {
	Model          string              `json:"model"`
	Messages       []message           `json:"messages"`
	ResponseFormat *ChatResponseFormat `json:"response_format,omitempty"`
}

type responseBodyEnvelope struct {
	Choices []struct {
		Message struct {
			Role         string  `json:"role,omitempty"`
			Content      string  `json:"content,omitempty"`
			FinishReason *string `json:"finish_reason,omitempty"`
		} `json:"message"`
	} `json:"choices"`
	Usage *struct {
		QueueTime        float64 `json:"queue_time"`
		PromptTokens     int     `json:"prompt_tokens"`
		PromptTime       float64 `json:"prompt_time"`
		CompletionTokens int     `json:"completion_tokens"`
		CompletionTime   float64 `json:"completion_time"`
		TotalTokens      int     `json:"total_tokens"`
		TotalTime        float64 `json:"total_time"`
	} `json:"usage"`
}
