// Package observability exposes the OTel tracer used around tool execution
// and retrieval search. Without an installed SDK exporter the spans are
// no-ops, so the call sites cost nothing in default deployments.
package observability

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// Span names.
const (
	SpanToolExecution   = "tools.execute"
	SpanToolDispatch    = "tools.dispatch"
	SpanRetrievalSearch = "rag.search"
	SpanRouteMessage    = "router.route"
)

// Common attribute keys.
const (
	AttrToolName    = "tool.name"
	AttrToolCaller  = "tool.caller"
	AttrQueryLength = "query.length"
	AttrResultCount = "result.count"
	AttrRoutePath   = "route.path"
)

// Tracer returns the named tracer from the global provider.
func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}
