// Package texttospeech defines the synthesis contract consumed by the
// orchestrator. Providers return an opaque handle to the produced audio
// rather than the bytes themselves.
package texttospeech

import "errors"

// ErrUnavailable is wrapped by providers when the synthesis service cannot
// be reached or rejects the request.
var ErrUnavailable = errors.New("tts unavailable")

const (
	DefaultSampleRate = 16000
	DefaultEncoding   = "linear16"
)

// Options describe one synthesis request.
type Options struct {
	Voice      string
	SampleRate int
	Encoding   string

	// StoreAudio persists the synthesized audio and returns the handle
	// surfaced to the caller. Providers fall back to a temp file when nil.
	StoreAudio func(audio []byte) (string, error)
}

type Option func(*Options)

func WithVoice(voice string) Option {
	return func(o *Options) { o.Voice = voice }
}

func WithSampleRate(sampleRate int) Option {
	return func(o *Options) { o.SampleRate = sampleRate }
}

func WithEncoding(encoding string) Option {
	return func(o *Options) { o.Encoding = encoding }
}

func WithAudioStore(store func(audio []byte) (string, error)) Option {
	return func(o *Options) { o.StoreAudio = store }
}
