// ttc-estimator - estimate time to collision from camera frames
//  Copyright (C) 2020, The Cacophony Project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

// Package stream serves estimates to web browsers as they are made.
package stream

import (
	"bufio"
	"encoding/json"
	"errors"
	"html/template"
	"log"
	"net"
	"net/http"
	"sync"

	"github.com/maruel/interrupt"
	"golang.org/x/net/websocket"

	"github.com/TheCacophonyProject/ttc-estimator/flow"
	"github.com/TheCacophonyProject/ttc-estimator/render"
)

// Message is sent to clients for every estimate.
type Message struct {
	Session  string          `json:"session"`
	Estimate *flow.Estimate  `json:"estimate"`
	Overlay  *render.Overlay `json:"overlay"`
}

// Server is a flow.ResultSink which keeps the most recent estimates
// and pushes them to websocket clients.
type Server struct {
	cond    sync.Cond
	session string
	layout  render.Layout
	verbose bool

	messages []Message
	count    int // total published
	closed   bool

	stop        chan struct{}
	watcherDone chan struct{}
	httpServer  *http.Server
}

func NewServer(conf *Config, session string, layout render.Layout) *Server {
	s := &Server{
		cond:        *sync.NewCond(&sync.Mutex{}),
		session:     session,
		layout:      layout,
		messages:    make([]Message, conf.History),
		stop:        make(chan struct{}),
		watcherDone: make(chan struct{}),
	}
	s.httpServer = &http.Server{
		Addr:    conf.Address,
		Handler: loggingHandler{s.Handler(), &s.verbose},
	}
	go func() {
		defer close(s.watcherDone)
		select {
		case <-interrupt.Channel:
			s.cond.Broadcast()
		case <-s.stop:
		}
	}()
	return s
}

// SetVerbose turns on logging of each HTTP request.
func (s *Server) SetVerbose(verbose bool) {
	s.verbose = verbose
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.root)
	mux.HandleFunc("/latest", s.latest)
	mux.Handle("/stream", websocket.Handler(s.stream))
	return mux
}

// Publish implements flow.ResultSink.
func (s *Server) Publish(est *flow.Estimate) error {
	e := *est
	msg := Message{
		Session:  s.session,
		Estimate: &e,
		Overlay:  s.layout.Overlay(&e),
	}

	s.cond.L.Lock()
	defer s.cond.L.Unlock()
	if s.closed {
		return errors.New("stream server closed")
	}
	s.messages[s.count%len(s.messages)] = msg
	s.count++
	s.cond.Broadcast()
	return nil
}

// ListenAndServe serves until Close is called.
func (s *Server) ListenAndServe() error {
	log.Printf("streaming estimates on %s", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Close disconnects all clients.
func (s *Server) Close() error {
	s.cond.L.Lock()
	if !s.closed {
		s.closed = true
		close(s.stop)
	}
	s.cond.Broadcast()
	s.cond.L.Unlock()
	return s.httpServer.Close()
}

func (s *Server) done() bool {
	return s.closed || interrupt.IsSet()
}

var rootTmpl = template.Must(template.New("root").Parse(`<!DOCTYPE html>
<html>
<head>
	<title>ttc-estimator</title>
	<style>
		body { background: black; color: lime; font-family: monospace; }
		canvas { border: 1px solid #333; }
	</style>
</head>
<body>
	<div>session {{.Session}}</div>
	<canvas id="c" width="{{.Width}}" height="{{.Height}}"></canvas>
	<pre id="lines"></pre>
	<script>
	var colours = ["red", "yellow", "lime"];
	var canvas = document.getElementById("c");
	var ctx = canvas.getContext("2d");
	var ws = new WebSocket((location.protocol == "https:" ? "wss://" : "ws://") + location.host + "/stream");
	ws.onmessage = function(e) {
		var msg = JSON.parse(e.data);
		ctx.clearRect(0, 0, canvas.width, canvas.height);
		msg.overlay.bars.forEach(function(b, i) {
			ctx.fillStyle = colours[i];
			ctx.fillRect(b.left, b.top, b.right - b.left, b.bottom - b.top);
		});
		if (msg.overlay.foe) {
			var f = msg.overlay.foe;
			ctx.fillStyle = "red";
			ctx.fillRect(f.left, f.top, f.right - f.left, f.bottom - f.top);
		}
		document.getElementById("lines").textContent = msg.overlay.lines.join("\n");
	};
	</script>
</body>
</html>
`))

func (s *Server) root(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html")
	data := struct {
		Session string
		Width   int
		Height  int
	}{s.session, s.layout.CanvasWidth, s.layout.CanvasHeight}
	if err := rootTmpl.Execute(w, data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// latest returns the most recent message as JSON.
func (s *Server) latest(w http.ResponseWriter, r *http.Request) {
	s.cond.L.Lock()
	if s.count == 0 {
		s.cond.L.Unlock()
		http.Error(w, "no estimates yet", http.StatusServiceUnavailable)
		return
	}
	msg := s.messages[(s.count-1)%len(s.messages)]
	s.cond.L.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
	if err := json.NewEncoder(w).Encode(msg); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// stream sends every estimate to a websocket client, starting with
// the most recent one. A client that falls more than History
// estimates behind skips ahead.
func (s *Server) stream(ws *websocket.Conn) {
	log.Printf("websocket from %s", ws.Request().RemoteAddr)
	defer ws.Close()

	s.cond.L.Lock()
	defer s.cond.L.Unlock()
	next := s.count - 1
	if next < 0 {
		next = 0
	}
	for !s.done() {
		for next == s.count && !s.done() {
			s.cond.Wait()
		}
		for ; !s.done() && next < s.count; next++ {
			if s.count-next > len(s.messages) {
				next = s.count - len(s.messages)
			}
			msg := s.messages[next%len(s.messages)]
			s.cond.L.Unlock()
			// Do the actual I/O without the lock.
			err := websocket.JSON.Send(ws, msg)
			s.cond.L.Lock()
			// To break out of the loop, the lock must be held.
			if err != nil {
				log.Printf("websocket err: %s", err)
				return
			}
		}
	}
}

type loggingHandler struct {
	handler http.Handler
	verbose *bool
}

type loggingResponseWriter struct {
	http.ResponseWriter
	length int
	status int
}

func (l *loggingResponseWriter) Write(data []byte) (size int, err error) {
	size, err = l.ResponseWriter.Write(data)
	l.length += size
	return
}

func (l *loggingResponseWriter) WriteHeader(status int) {
	l.ResponseWriter.WriteHeader(status)
	l.status = status
}

// Hijack is needed for websocket.
func (l *loggingResponseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h := l.ResponseWriter.(http.Hijacker)
	return h.Hijack()
}

// ServeHTTP logs each HTTP request when verbose.
func (l loggingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !*l.verbose {
		l.handler.ServeHTTP(w, r)
		return
	}
	lrw := &loggingResponseWriter{ResponseWriter: w}
	l.handler.ServeHTTP(lrw, r)
	log.Printf("%s - %3d %6db %4s %s", r.RemoteAddr, lrw.status, lrw.length, r.Method, r.RequestURI)
}
