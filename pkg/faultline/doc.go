// Package faultline provides lightweight error-event ingestion: it
// canonicalizes application errors and log records into structured events,
// deduplicates bursts of identical errors, guesses the originating
// application code location, and delivers events to remote collectors with
// a local fallback.
//
// # Core Components
//
// The library is organized around these concepts:
//
//   - Event: The canonical error occurrence with level, checksum, view and data
//   - Client: Central pipeline applying sanitization, checksums, throttling and filters
//   - Store: Local destination for events when no remote endpoints are configured
//   - Gate: Best-effort rate limiter over a shared counter store
//   - Filter: Pluggable event transformer/validator run before dispatch
//
// # Quick Start
//
// Reporting to remote collectors:
//
//	client := faultline.NewClient(
//	    faultline.WithEndpoints("https://collector.example.com/store/"),
//	    faultline.WithKey(key),
//	    faultline.WithLogger(logger),
//	)
//	client.CaptureError(ctx, err)
//
// Local-only usage with panic capture:
//
//	client := faultline.NewClient(faultline.WithStore(memory.New()))
//	defer faultline.Recover(ctx, client)
//
// # Design Principles
//
//   - Reporting never raises: all pipeline and delivery errors are swallowed and logged
//   - Checksums come from raw message templates, so interpolated values never split groups
//   - Sanitization is total: cycles, huge values and odd types degrade to bounded placeholders
package faultline
