// Package lara provides a JSON-RPC client for the LARA translation MCP server.
//
// # Transport
//
// Every call is a JSON-RPC 2.0 POST to the configured server URL carrying
// the x-lara-access-key-id and x-lara-access-key-secret headers. The server
// may answer with plain JSON or with a server-sent event stream; for streams
// the last "data:" line holds the response.
//
// # Request Shapes
//
// Single texts go through tools/call. Deployments have differed in the tool
// name and argument keys, so Client.Negotiate probes the known shapes once
// and keeps the first that answers. Without negotiation the first shape is
// used. Batches use the translate_batch method.
//
// # Entry Points
//
// NewClient: construct client from Config; missing credentials fail here.
// Client.Translate: translate one text.
// Client.TranslateBatch: translate many texts in one call.
// Client.Negotiate: pick the request shape the server accepts.
// Client.Ping / Client.Reachable: send initialize and report the outcome.
//
// # Retry Behaviour
//
// The client retries on HTTP 408/429/5xx errors and network timeouts with
// exponential backoff (base 500ms, max 5s, up to 3 attempts by default).
// JSON-RPC errors are returned without retry. Context cancellation aborts
// retries immediately.
package lara
