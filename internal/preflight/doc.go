// Package preflight provides readiness checks for the binaries, directories,
// artwork, and remote services that reelforge depends on.
//
// These checks run in two contexts:
//   - "reelforge serve" calls RunAll at startup and logs every failure, so a
//     missing background video shows up before the first request does.
//   - "reelforge status" and GET /api/health report the same results to
//     operators.
//
// Remote checks are gated by configuration: the alignment service is only
// contacted when alignment.backend is "http", and the LLM only when a key is set.
package preflight
