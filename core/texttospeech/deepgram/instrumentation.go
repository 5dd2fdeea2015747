package deepgram

import (
	"go.opentelemetry.io/otel"
)

const scopeName = "github.com/aeropractica/atc-core/core/texttospeech/deepgram"

var (
	tracer = otel.Tracer(scopeName)
)
