package server

import (
	"fmt"
	"net/http"
)

// WebSocketHandler upgrades GET /ws requests and hands the connection to
// the hub, which starts its pumps.
func (s *Server) WebSocketHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}

	client := NewClient(conn, s.hub, s.relay, r.RemoteAddr, s.cfg, s.logger)
	if !s.hub.Register(client) {
		client.logger.Info("rejecting connection during shutdown")
		client.closeConnection()
	}
}

// HealthHandler provides a simple health check endpoint that returns server status.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprint(w, "chanrelay server is running")
}

// HealthzHandler is the liveness probe.
func HealthzHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

// TestPageHandler serves an HTML page that connects to /ws on the same host,
// sends raw protocol JSON and shows every event the server pushes.
func TestPageHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = fmt.Fprint(w, testPageHTML)
}

const testPageHTML = `<!DOCTYPE html>
<html>
<head>
    <title>chanrelay test console</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        #events {
            border: 1px solid #ccc;
            height: 320px;
            padding: 10px;
            overflow-y: scroll;
            margin: 10px 0;
            background-color: #f9f9f9;
            font-family: monospace;
        }
        input[type="text"] { width: 420px; padding: 5px; margin-right: 10px; font-family: monospace; }
        button {
            padding: 5px 15px;
            background-color: #007cba;
            color: white;
            border: none;
            cursor: pointer;
            margin: 2px;
        }
        button:hover { background-color: #005a87; }
        .status { margin: 10px 0; padding: 5px; border-radius: 3px; }
        .connected { background-color: #d4edda; color: #155724; }
        .disconnected { background-color: #f8d7da; color: #721c24; }
    </style>
</head>
<body>
    <h1>chanrelay test console</h1>

    <div id="status" class="status disconnected">Disconnected</div>

    <div>
        <button id="connectButton" onclick="toggleConnection()">Connect</button>
        <button onclick="fill({type: 'Login', username: 'alice', password: 'secret'})">Login</button>
        <button onclick="fill({type: 'Join', channel: 'general'})">Join</button>
        <button onclick="fill({type: 'Message', channel: 'general', text: 'hello'})">Message</button>
        <button onclick="fill({type: 'AllChannels'})">AllChannels</button>
        <button onclick="fill({type: 'JoinedChannels'})">JoinedChannels</button>
        <button onclick="fill({type: 'Logout'})">Logout</button>
    </div>
    <div>
        <input type="text" id="frameInput" placeholder='{"type":"Login","username":"alice","password":"secret"}' disabled>
        <button id="sendButton" onclick="sendFrame()" disabled>Send</button>
    </div>

    <div id="events"></div>

    <script>
        let ws = null;
        const eventsDiv = document.getElementById('events');
        const frameInput = document.getElementById('frameInput');
        const sendButton = document.getElementById('sendButton');
        const connectButton = document.getElementById('connectButton');
        const statusDiv = document.getElementById('status');

        function addLine(text, color) {
            const line = document.createElement('div');
            line.style.margin = '3px 0';
            line.style.color = color || 'gray';
            line.textContent = text;
            eventsDiv.appendChild(line);
            eventsDiv.scrollTop = eventsDiv.scrollHeight;
        }

        function updateStatus(connected) {
            statusDiv.textContent = connected ? 'Connected' : 'Disconnected';
            statusDiv.className = 'status ' + (connected ? 'connected' : 'disconnected');
            frameInput.disabled = !connected;
            sendButton.disabled = !connected;
            connectButton.textContent = connected ? 'Disconnect' : 'Connect';
        }

        function connect() {
            const scheme = location.protocol === 'https:' ? 'wss://' : 'ws://';
            ws = new WebSocket(scheme + location.host + '/ws');
            ws.onopen = function() {
                addLine('connected');
                updateStatus(true);
            };
            ws.onmessage = function(event) {
                addLine('<- ' + event.data, 'green');
            };
            ws.onclose = function() {
                addLine('connection closed');
                updateStatus(false);
                ws = null;
            };
            ws.onerror = function() {
                addLine('connection error');
            };
        }

        function toggleConnection() {
            if (ws && ws.readyState === WebSocket.OPEN) {
                ws.close();
            } else {
                connect();
            }
        }

        function fill(frame) {
            frameInput.value = JSON.stringify(frame);
            frameInput.focus();
        }

        function sendFrame() {
            const frame = frameInput.value.trim();
            if (frame && ws && ws.readyState === WebSocket.OPEN) {
                ws.send(frame);
                addLine('-> ' + frame, 'blue');
            }
        }

        frameInput.addEventListener('keypress', function(e) {
            if (e.key === 'Enter') {
                sendFrame();
            }
        });
    </script>
</body>
</html>`
