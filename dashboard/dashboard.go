package dashboard

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"sc2runtime/coordinator"
	"sc2runtime/logging"
)

// Dashboard serves a single HTML status page and a websocket feed of
// coordinator.Stats snapshots, routed with gorilla/mux. It supports any
// number of concurrent browser tabs, each subscribed to the shared hub,
// unlike the teacher's single-client server.Server.
type Dashboard struct {
	addr string
	hub  *hub
}

// New returns a Dashboard listening on addr; once Serve is running it
// broadcasts every Stats value received on Serve's stats channel to all
// connected clients.
func New(addr string) *Dashboard {
	return &Dashboard{addr: addr, hub: newHub()}
}

// Serve runs the dashboard's HTTP server until ctx is cancelled, feeding it
// from stats. It returns nil on a clean shutdown.
func (d *Dashboard) Serve(ctx context.Context, stats <-chan coordinator.Stats) error {
	log := logging.With("dashboard")
	go d.hub.run(ctx, stats)

	r := mux.NewRouter()
	r.HandleFunc("/", d.serveIndex).Methods(http.MethodGet)
	r.HandleFunc("/ws", d.serveWebsocket)

	srv := &http.Server{
		Addr:    d.addr,
		Handler: r,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	log.Info().Str("addr", d.addr).Msg("dashboard listening")

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("dashboard: shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("dashboard: serve: %w", err)
	}
}

func (d *Dashboard) serveWebsocket(w http.ResponseWriter, r *http.Request) {
	log := logging.With("dashboard")

	sub, latest, hasLatest := d.hub.subscribe()
	defer d.hub.unsubscribe(sub)

	// Replay the latest snapshot immediately so a newly connected client
	// doesn't sit blank for a full tick.
	if hasLatest {
		select {
		case sub <- latest:
		default:
		}
	}

	cli, err := newWSClient[coordinator.Stats](sub, w, r)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	if err := cli.sync(); err != nil && !isClosure(err) {
		log.Warn().Err(err).Msg("dashboard client disconnected")
	}
}

func (d *Dashboard) serveIndex(w http.ResponseWriter, r *http.Request) {
	stats, _ := d.hub.Latest()
	w.Header().Set("Content-Type", "text/html")
	if err := indexTemplate.Execute(w, stats); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html>
<head>
	<title>sc2runtime dashboard</title>
	<link rel="icon" href="data:,">
</head>
<body>
	<h1>Match status</h1>
	<div id="tick">Tick: {{.Tick}}</div>
	<div id="outcome">Outcome: {{.Outcome}}</div>
	<table id="participants" border="1" cellpadding="4">
		<thead>
			<tr>
				<th>Name</th><th>Role</th><th>State</th><th>Tick</th>
				<th>Minerals</th><th>Vespene</th><th>Units</th><th>Score</th>
			</tr>
		</thead>
		<tbody>
		{{range .Participants}}
			<tr>
				<td>{{.Name}}</td><td>{{.Role}}</td><td>{{.State}}</td><td>{{.Tick}}</td>
				<td>{{.Minerals}}</td><td>{{.Vespene}}</td><td>{{.Units}}</td>
				<td>{{printf "%.1f" .Score}}</td>
			</tr>
		{{end}}
		</tbody>
	</table>
	<script>
		const ws = new WebSocket("ws://" + location.host + "/ws");
		ws.onerror = function(event) { console.log("dashboard socket error: ", event); };
		ws.onmessage = function(event) {
			const s = JSON.parse(event.data);
			document.getElementById("tick").textContent = "Tick: " + s.Tick;
			document.getElementById("outcome").textContent = "Outcome: " + s.Outcome;
			const tbody = document.querySelector("#participants tbody");
			tbody.innerHTML = "";
			for (const p of (s.Participants || [])) {
				const tr = document.createElement("tr");
				tr.innerHTML =
					"<td>" + p.Name + "</td>" +
					"<td>" + p.Role + "</td>" +
					"<td>" + p.State + "</td>" +
					"<td>" + p.Tick + "</td>" +
					"<td>" + p.Minerals + "</td>" +
					"<td>" + p.Vespene + "</td>" +
					"<td>" + p.Units + "</td>" +
					"<td>" + p.Score.toFixed(1) + "</td>";
				tbody.appendChild(tr);
			}
		};
	</script>
</body>
</html>
`))
