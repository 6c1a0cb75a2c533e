// Package api exposes the queue and batch runs over HTTP.
//
// The server owns no state of its own beyond the current run: it shares the
// queue with whoever constructed it and starts at most one run at a time on a
// background goroutine. A second run request while one is active is refused
// with 409 Conflict.
//
// # Routes
//
//	GET  /api/health               liveness
//	GET  /api/queue                items and per-status counts
//	POST /api/scan                 rescan the folder pair
//	POST /api/queue/pair           pair subtitles with items
//	POST /api/runs/:operation      start extract, translate, merge or process
//	GET  /api/runs/current         progress of the active or last run
//	POST /api/stop                 request a stop
//	POST /api/reset                clear the stop flag and revert in-flight items
//
// DTOs use camelCase JSON tags. Timestamps use RFC3339 with milliseconds.
package api
