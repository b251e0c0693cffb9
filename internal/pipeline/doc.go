// Package pipeline runs one render request end to end.
//
// A request is validated, checked for required artwork, then given its own
// scratch workspace. The timeline assembler synthesizes and aligns the
// dialogue, the planner writes the soundtrack, subtitles, and overlays into
// the workspace, and the renderer encodes the MP4. The workspace is removed
// whether the request succeeds or fails. Every finished request is recorded
// through the optional Recorder and counted in the Prometheus collectors.
//
// Failures surface as *Error carrying a services.Class so transports can map
// them to status codes without string matching.
package pipeline
