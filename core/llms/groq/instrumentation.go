package groq

import (
	"go.opentelemetry.io/otel"
)

const scopeName = "github.com/aeropractica/atc-core/core/llms/groq"

var (
	tracer = otel.Tracer(scopeName)
)
