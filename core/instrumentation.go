package orchestration

import (
	"go.opentelemetry.io/otel"
)

const scopeName = "github.com/aeropractica/atc-core/core"

var (
	tracer = otel.Tracer(scopeName)
)
