// Package api defines wire-format types and converters for the HTTP API.
// It translates internal models (dialogue turns, history entries, preflight
// results) into transport-friendly DTOs so handlers and the CLI never encode
// internal types directly.
//
// # Key Types
//
// RenderRequest: the conversation plus base64 media uploads accepted by
// POST /api/render. The field names match the original web frontend.
//
// RenderView: one row of render history.
//
// HealthResponse: readiness checks, binary availability, and backend settings.
//
// # Converters
//
// DecodeMedia: MediaFile list -> assets.Library. Undecodable or oversized
// files are dropped with a warning rather than failing the request.
//
// FromEntry: history.Entry -> RenderView.
//
// FromReport: preflight.Report -> HealthResponse checks and dependencies.
//
// # Design Notes
//
// DTOs use camelCase JSON tags for JavaScript/TypeScript consumers.
// Timestamps use RFC3339 with milliseconds.
package api
