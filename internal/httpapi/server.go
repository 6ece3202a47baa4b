package httpapi

import (
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/luhtfiimanal/go-thermo-serial/display"
	"github.com/luhtfiimanal/go-thermo-serial/session"
)

// StateSource provides the latest display state.
type StateSource interface {
	Current() display.State
}

// SessionSource describes the running reader, if any.
type SessionSource interface {
	Active() (session.Info, bool)
}

type server struct {
	states   StateSource
	sessions SessionSource
	log      *slog.Logger
}

// NewRouter serves the dashboard and its JSON API. Access logs go to log.
func NewRouter(states StateSource, sessions SessionSource, log *slog.Logger) http.Handler {
	if log == nil {
		log = slog.Default()
	}
	s := &server{states: states, sessions: sessions, log: log}

	r := mux.NewRouter()
	r.HandleFunc("/health", s.health).Methods(http.MethodGet)
	r.HandleFunc("/api/state", s.state).Methods(http.MethodGet)
	r.HandleFunc("/api/session", s.session).Methods(http.MethodGet)
	r.HandleFunc("/", s.dashboard).Methods(http.MethodGet)

	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{http.MethodGet}),
	)
	return handlers.CombinedLoggingHandler(accessLog{log}, cors(r))
}

func (s *server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type stateResponse struct {
	display.State
	Known      bool             `json:"known"`
	Background display.Gradient `json:"background"`
}

func (s *server) state(w http.ResponseWriter, _ *http.Request) {
	st := s.states.Current()
	writeJSON(w, http.StatusOK, stateResponse{
		State:      st,
		Known:      st.Known(),
		Background: display.Background(st.TemperatureC),
	})
}

type sessionResponse struct {
	Active  bool          `json:"active"`
	Session *session.Info `json:"session,omitempty"`
}

func (s *server) session(w http.ResponseWriter, _ *http.Request) {
	info, ok := s.sessions.Active()
	resp := sessionResponse{Active: ok}
	if ok {
		resp.Session = &info
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *server) dashboard(w http.ResponseWriter, _ *http.Request) {
	st := s.states.Current()
	g := display.Background(st.TemperatureC)
	data := dashboardData{
		State:      st,
		Background: template.CSS(fmt.Sprintf("linear-gradient(to bottom, %s, %s)", g.Top.Hex(), g.Bottom.Hex())),
	}
	if info, ok := s.sessions.Active(); ok {
		data.Device = info.Device
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := dashboardTmpl.Execute(w, data); err != nil {
		s.log.Error("render dashboard", "err", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// accessLog adapts slog to the io.Writer gorilla/handlers logs to.
type accessLog struct{ log *slog.Logger }

func (a accessLog) Write(p []byte) (int, error) {
	a.log.Info("http", "access", strings.TrimRight(string(p), "\n"))
	return len(p), nil
}
