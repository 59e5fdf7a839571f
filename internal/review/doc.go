// Package review holds the UI-agnostic state of the scan review workflow:
// the inbox of pending scans, the detections of the active scan, the
// correction panel, and the coordinator that applies optimistic bulk
// actions. Types in this package are not safe for concurrent use unless
// noted; the TUI drives them from its single update loop and performs
// backend calls in commands.
package review
