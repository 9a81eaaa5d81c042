// Package telemetry sets up OpenTelemetry tracing and metrics for projreg.
//
// Telemetry is off by default. When enabled, spans and metrics are exported
// over OTLP (gRPC or HTTP/protobuf) to a collector:
//
//	observability:
//	  enable_telemetry: true
//	  endpoint: "localhost:4317"
//	  protocol: grpc
//
// Failures to build an exporter never stop the program; the instance is
// marked degraded and hands out the global no-op providers instead.
//
// Tests use NewTestTelemetry, which records spans and metrics in memory.
package telemetry
