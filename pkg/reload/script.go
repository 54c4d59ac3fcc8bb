// Copyright 2025 Glimpse Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

// Package reload implements the opt-in live reload pipeline: a filesystem
// watcher that coalesces change events, a websocket hub that pushes reload
// commands, and the client script injected into served HTML pages.
package reload

import (
	"bytes"
	"net/http"
)

const (
	// SocketPath is where the hub accepts websocket connections.
	SocketPath = "/livereload"

	// ScriptPath is where the client script is served from.
	ScriptPath = "/livereload.js"
)

const scriptTag = `<script src="` + ScriptPath + `" defer></script>`

// clientScript reconnects forever so a server restart picks the page back
// up, and reloads on the reload command.
const clientScript = `(function () {
  "use strict";
  var retryDelay = 1000;

  function connect() {
    var proto = location.protocol === "https:" ? "wss://" : "ws://";
    var sock = new WebSocket(proto + location.host + "` + SocketPath + `");

    sock.onmessage = function (ev) {
      var msg;
      try {
        msg = JSON.parse(ev.data);
      } catch (e) {
        return;
      }
      if (msg && msg.command === "reload") {
        location.reload();
      }
    };

    sock.onclose = function () {
      setTimeout(connect, retryDelay);
    };
  }

  connect();
})();
`

// InjectScript adds the reload client tag to an HTML payload, right before
// the closing body tag when one exists, appended otherwise.
func InjectScript(html []byte) []byte {
	tag := []byte(scriptTag)

	lower := bytes.ToLower(html)
	i := bytes.LastIndex(lower, []byte("</body>"))
	if i < 0 {
		out := make([]byte, 0, len(html)+len(tag)+1)
		out = append(out, html...)
		out = append(out, '\n')
		out = append(out, tag...)
		return out
	}

	out := make([]byte, 0, len(html)+len(tag))
	out = append(out, html[:i]...)
	out = append(out, tag...)
	out = append(out, html[i:]...)
	return out
}

// ScriptHandler serves the client script.
func ScriptHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		_, _ = w.Write([]byte(clientScript))
	})
}
