// Package server hosts the reelforge HTTP API.
//
// Routes are served with chi. Everything under /api except /api/health
// requires "Authorization: Bearer <token>" when server.api_token is set.
// POST /api/render blocks until the MP4 is ready and streams it back as
// video/mp4; failures are JSON with the error class so the frontend can
// tell a bad request from a backend outage.
package server
