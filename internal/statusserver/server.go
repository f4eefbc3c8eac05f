package statusserver

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/flame2-go/flame2/internal/eventbus"
	"github.com/flame2-go/flame2/internal/logx"
	"github.com/flame2-go/flame2/internal/taskgraph"
)

// Snapshot is the /status JSON payload: the Task Manager's current
// per-iteration counters plus overall task count.
type Snapshot struct {
	NumTasks  int `json:"num_tasks"`
	Ready     int `json:"ready"`
	Assigned  int `json:"assigned"`
	Pending   int `json:"pending"`
	Iteration int `json:"iteration"`
}

// Server exposes task-graph status over HTTP and streams eventbus events
// to connected WebSocket clients.
type Server struct {
	tasks   *taskgraph.Manager
	bus     *eventbus.Bus
	hub     *hub
	log     *logx.Logger
	http    *http.Server
	upgrade websocket.Upgrader

	iteration int
}

// New builds a Server bound to tasks and bus, listening on addr when
// Start is called.
func New(addr string, tasks *taskgraph.Manager, bus *eventbus.Bus) *Server {
	s := &Server{
		tasks: tasks,
		bus:   bus,
		hub:   newHub(),
		log:   logx.New("statusserver"),
	}
	router := mux.NewRouter()
	router.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	router.HandleFunc("/ws", s.handleWS)
	s.http = &http.Server{Addr: addr, Handler: router}
	return s
}

// Start launches the hub loop, the event-forwarding goroutine, and the
// HTTP listener in the background. It returns immediately.
func (s *Server) Start() {
	go s.hub.run()
	go s.forwardEvents()
	go func() {
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Errorf("listen: %v", err)
		}
	}()
}

// Shutdown gracefully stops the HTTP listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// ClientCount returns the number of currently connected WebSocket
// dashboards.
func (s *Server) ClientCount() int {
	return s.hub.clientCount()
}

func (s *Server) forwardEvents() {
	ch := s.bus.Subscribe()
	for event := range ch {
		if event.Kind == eventbus.KindIterationStart {
			s.iteration = event.Iteration
		}
		s.hub.broadcastJSON(event)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ready, assigned, pending := s.tasks.IterCounts()
	snap := Snapshot{
		NumTasks:  s.tasks.NumTasks(),
		Ready:     ready,
		Assigned:  assigned,
		Pending:   pending,
		Iteration: s.iteration,
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(snap)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrade.Upgrade(w, r, nil)
	if err != nil {
		s.log.Errorf("websocket upgrade: %v", err)
		return
	}
	c := &client{hub: s.hub, conn: conn, send: make(chan []byte, websocketBufferSize)}
	s.hub.register <- c
	go c.writePump()
	go c.readPump()
}
