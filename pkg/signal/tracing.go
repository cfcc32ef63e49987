package signal

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const registryTracerName = "slotbus.signal"

const (
	spanSignalInvoke = "signal.invoke"
	spanSignalSlot   = "signal.slot"
)

func registryTracer() trace.Tracer {
	return otel.Tracer(registryTracerName)
}
