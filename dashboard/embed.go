// Package dashboard provides the embedded web UI of the vixen relay.
//
// The page subscribes to the relay's SSE stream and shows the latest payload
// signalled on each channel. Assets are embedded at compile time so the
// vixen binary deploys without external files.
package dashboard

import "embed"

// Assets is an embedded filesystem containing the dashboard web UI.
//
// The filesystem structure is:
//
//	assets/
//	  index.html    - Relay message viewer with inline CSS and JavaScript
//
//go:embed assets/*
var Assets embed.FS
