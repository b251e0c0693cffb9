package api

import (
	"encoding/base64"
	"log/slog"
	"strings"

	"reelforge/internal/history"
	"reelforge/internal/logging"
	"reelforge/internal/media/assets"
	"reelforge/internal/preflight"
)

// DecodeMedia builds an asset library from uploads. Files that cannot be
// decoded, exceed their size limit, or have no name are skipped and logged.
func DecodeMedia(files []MediaFile, logger *slog.Logger) *assets.Library {
	if logger == nil {
		logger = logging.NewNop()
	}
	library := assets.NewLibrary()
	for _, file := range files {
		name := strings.TrimSpace(file.Filename)
		data, err := base64.StdEncoding.DecodeString(stripDataURL(file.Data))
		if err != nil {
			logging.WarnWithContext(logger, "media upload skipped", "media_decode_failed",
				logging.String("filename", name),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "send media as standard base64"),
				logging.String(logging.FieldImpact, "media will not appear in the video"),
			)
			continue
		}
		if _, err := library.Add(name, data); err != nil {
			logging.WarnWithContext(logger, "media upload skipped", "media_rejected",
				logging.String("filename", name),
				logging.Int("bytes", len(data)),
				logging.Error(err),
				logging.String(logging.FieldImpact, "media will not appear in the video"),
			)
		}
	}
	return library
}

// stripDataURL accepts "data:image/png;base64,...." as well as bare base64.
func stripDataURL(value string) string {
	value = strings.TrimSpace(value)
	if strings.HasPrefix(value, "data:") {
		if idx := strings.Index(value, ","); idx >= 0 {
			return value[idx+1:]
		}
	}
	return value
}

// FromEntry converts a history entry.
func FromEntry(entry history.Entry) RenderView {
	view := RenderView{
		ID:            entry.ID,
		Status:        entry.Status,
		ErrorClass:    entry.ErrorClass,
		ErrorDetail:   entry.ErrorDetail,
		Turns:         entry.Turns,
		Segments:      entry.Segments,
		Words:         entry.Words,
		Overlays:      entry.Overlays,
		TotalDuration: entry.TotalDuration,
		VideoBytes:    entry.VideoBytes,
		Source:        entry.Source,
		ElapsedMillis: entry.Elapsed().Milliseconds(),
	}
	if !entry.StartedAt.IsZero() {
		view.StartedAt = entry.StartedAt.UTC().Format(dateTimeFormat)
	}
	if !entry.FinishedAt.IsZero() {
		view.FinishedAt = entry.FinishedAt.UTC().Format(dateTimeFormat)
	}
	return view
}

// FromEntries converts a slice of entries, never returning nil.
func FromEntries(entries []history.Entry) []RenderView {
	views := make([]RenderView, 0, len(entries))
	for _, entry := range entries {
		views = append(views, FromEntry(entry))
	}
	return views
}

// FromReport fills the check and dependency sections of a health response.
func FromReport(report preflight.Report) ([]CheckView, []DependencyStatus) {
	checks := make([]CheckView, 0, len(report.Checks))
	for _, c := range report.Checks {
		checks = append(checks, CheckView{Name: c.Name, Passed: c.Passed, Detail: c.Detail})
	}
	deps := make([]DependencyStatus, 0, len(report.Dependencies))
	for _, d := range report.Dependencies {
		deps = append(deps, DependencyStatus{
			Name:        d.Name,
			Command:     d.Command,
			Path:        d.Path,
			Description: d.Description,
			Optional:    d.Optional,
			Available:   d.Available,
			Detail:      d.Detail,
		})
	}
	return checks, deps
}
