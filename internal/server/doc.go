// Package server implements the MCP (Model Context Protocol) server for the
// marker pose tools.
//
// This package provides a JSON-RPC 2.0 server that exposes the tracking
// pipeline through the MCP protocol, so an MCP client can tune segmentation,
// inspect detections and track frame sequences one call at a time.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Single-image analysis:
//   - marker_detect: Segment, extract regions and solve a one-shot pose
//   - marker_sample_hsv: Sample HSV values and derive a threshold range
//
// Tracking sessions:
//   - marker_session_open: Create a session (optionally from a YAML config)
//   - marker_track_frame: Process the next frame of a session
//   - marker_session_reset: Clear the session's jitter state
//   - marker_session_close: Drop the session
//
// # Sessions
//
// Each session owns a pipeline.Tracker, and with it the jitter filter state
// that carries across frames. Session ids are random UUIDs. Calls on the same
// session are serialised; different sessions run independently.
//
// # Frame Caching
//
// The inspection tools (marker_detect, marker_sample_hsv) cache frames by
// path, so sampling and detecting on one image decodes it once. A file
// rewritten on disk is decoded again. marker_track_frame always reads the file
// afresh and never keeps the frame, so a client may overwrite one path with
// every new frame.
//
// # Error Handling
//
// Errors are returned as JSON-RPC error responses with:
//   - code: -32602 (missing or malformed arguments, unknown tool),
//     -32000 (tool execution failure, e.g. unreadable image or unknown
//     session), -32601 (unknown method), -32700 (unparseable request)
//   - message: Human-readable error description
//   - data: Additional error details (typically the Go error string)
//
// # Usage
//
//	srv := server.New(config.Default(), logger.Log(), nil)
//	if err := srv.Run(); err != nil {
//	    logger.Log().Fatal("server error", zap.Error(err))
//	}
package server
