package deepgram

import (
	"go.opentelemetry.io/otel"
)

const scopeName = "github.com/aeropractica/atc-core/core/speechtotext/deepgram"

var (
	tracer = otel.Tracer(scopeName)
)
