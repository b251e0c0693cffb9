// Package render turns an assembled timeline into a composition plan and
// hands the plan to ffmpeg.
//
// Planner owns the file side: it writes the joined dialogue track, the ASS
// script, and every media overlay into a per-request Workspace, then records
// paths and timing windows in a Plan. FFmpegRenderer owns the encode: it
// builds the filter graph (looping background, character art gated by
// enable expressions, media overlays, burned-in subtitles) and returns the
// encoded MP4 bytes. Failures match services.ErrRender and carry ffmpeg's
// stderr.
package render
