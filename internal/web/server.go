package web

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/FurqanAfridi/Mass-Gmail-Sender/internal/history"
)

// Server exposes run progress and outcome history on localhost. All
// routes are read-only; runs cannot be started or cancelled from here.
type Server struct {
	tracker *RunTracker
	store   *history.Store
}

func NewServer(tracker *RunTracker, store *history.Store) *Server {
	return &Server{tracker: tracker, store: store}
}

// Router builds the chi route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleIndex)
	r.Get("/api/run", s.handleRun)
	r.Get("/api/outcomes", s.handleOutcomes)
	r.Get("/api/stats", s.handleStats)

	return r
}

// ListenAndServe serves on localhost only.
func (s *Server) ListenAndServe(port int) error {
	addr := fmt.Sprintf("127.0.0.1:%d", port)
	return http.ListenAndServe(addr, s.Router())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleRun(w http.ResponseWriter, _ *http.Request) {
	run := s.tracker.Active()
	if run == nil {
		run = s.tracker.Latest()
	}
	if run == nil {
		writeJSON(w, http.StatusOK, map[string]any{"run": nil})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"run": run.snapshot()})
}

func (s *Server) handleOutcomes(w http.ResponseWriter, _ *http.Request) {
	outcomes, err := s.store.Recent(50)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"outcomes": outcomes})
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	stats, err := s.store.Stats()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"by_status":  stats.ByStatus,
		"total_sent": stats.TotalSent,
	})
}

const indexPage = `<!DOCTYPE html>
<html>
<head>
<title>Gmail Sender - Status</title>
<style>
body { font-family: sans-serif; max-width: 760px; margin: 2em auto; color: #222; }
table { border-collapse: collapse; width: 100%; }
th, td { text-align: left; padding: 6px 10px; border-bottom: 1px solid #ddd; }
.ok { color: #2a7a2a; } .bad { color: #b03030; }
#bar { background: #eee; height: 14px; border-radius: 7px; overflow: hidden; }
#fill { background: #4a8fd4; height: 100%; width: 0; }
</style>
</head>
<body>
<h1>Gmail Sender</h1>
<div id="run">No run in progress.</div>
<div id="bar"><div id="fill"></div></div>
<h2>Recent outcomes</h2>
<table id="outcomes"><tr><th>Account</th><th>Operation</th><th>Status</th><th>Sent</th><th>Failed</th></tr></table>
<script>
async function refresh() {
  const runRes = await fetch('/api/run'); const runData = await runRes.json();
  if (runData.run) {
    const r = runData.run;
    document.getElementById('run').textContent =
      r.operation + ': ' + r.status + ' - ' + r.sent + ' sent, ' + r.failed + ' failed';
    document.getElementById('fill').style.width = r.progress + '%';
  }
  const res = await fetch('/api/outcomes'); const data = await res.json();
  const table = document.getElementById('outcomes');
  while (table.rows.length > 1) table.deleteRow(1);
  for (const o of data.outcomes || []) {
    const row = table.insertRow();
    row.insertCell().textContent = o.Account;
    row.insertCell().textContent = o.Operation;
    const st = row.insertCell();
    st.textContent = o.Status;
    st.className = (o.Status === 'provisioned' || o.Status === 'completed') ? 'ok' : 'bad';
    row.insertCell().textContent = o.Sent;
    row.insertCell().textContent = o.Failed;
  }
}
refresh(); setInterval(refresh, 2000);
</script>
</body>
</html>`

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(indexPage))
}
