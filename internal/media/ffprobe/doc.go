// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Inspect runs ffprobe and returns the parsed Result. DurationReader narrows
// that to the one question the pipeline asks of synthesized clips and
// uploaded videos: how long does this play for.
package ffprobe
