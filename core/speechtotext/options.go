// Package speechtotext defines the transcription contract consumed by the
// orchestrator and the audio encoding parameters providers need.
package speechtotext

import "errors"

// ErrUnavailable is wrapped by providers when the transcription service
// cannot be reached or rejects the stream.
var ErrUnavailable = errors.New("asr unavailable")

const (
	DefaultSampleRate = 16000
	DefaultEncoding   = "linear16"
	DefaultLanguage   = "es"
)

// Options describe one transcription request.
type Options struct {
	Language   string
	Model      string
	SampleRate int
	Encoding   string

	// Keywords boost domain vocabulary (callsigns, waypoints) the acoustic
	// model would otherwise miss.
	Keywords []string
}

type Option func(*Options)

func WithLanguage(language string) Option {
	return func(o *Options) { o.Language = language }
}

func WithModel(model string) Option {
	return func(o *Options) { o.Model = model }
}

func WithSampleRate(sampleRate int) Option {
	return func(o *Options) { o.SampleRate = sampleRate }
}

func WithEncoding(encoding string) Option {
	return func(o *Options) { o.Encoding = encoding }
}

func WithKeywords(keywords ...string) Option {
	return func(o *Options) { o.Keywords = append(o.Keywords, keywords...) }
}
