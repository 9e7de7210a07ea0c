package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/jwebster45206/slugrando/internal/middleware"
	"github.com/jwebster45206/slugrando/pkg/gatemap"
	"github.com/jwebster45206/slugrando/pkg/slugcat"
)

// GateStatus reports one edge of the character's graph.
type GateStatus struct {
	Name   string            `json:"name"`
	A      string            `json:"a"`
	B      string            `json:"b"`
	Kind   gatemap.EdgeKind  `json:"kind"`
	Usable gatemap.Usability `json:"usable"`
}

// ReachableResponse is the result of a reachability query.
type ReachableResponse struct {
	Character slugcat.Name `json:"character"`
	Start     string       `json:"start"`
	Regions   []string     `json:"regions"`
	Starred   []string     `json:"starred"`
	Passes    int          `json:"passes"`
	Gates     []GateStatus `json:"gates"`
}

// ReachableHandler serves GET /v1/reachable?character=&start=&keys=&options=.
// keys and options are comma-separated; start defaults to the configured region.
type ReachableHandler struct {
	log          *slog.Logger
	gates        *gatemap.Map
	roster       *slugcat.Roster
	defaultStart string
}

func NewReachableHandler(log *slog.Logger, gates *gatemap.Map, roster *slugcat.Roster, defaultStart string) *ReachableHandler {
	return &ReachableHandler{
		log:          log,
		gates:        gates,
		roster:       roster,
		defaultStart: defaultStart,
	}
}

func splitList(raw string) []string {
	var out []string
	for _, v := range strings.Split(raw, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func (h *ReachableHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	log := middleware.Logger(r.Context(), h.log)
	q := r.URL.Query()

	rawCharacter := q.Get("character")
	if rawCharacter == "" {
		http.Error(w, "character is required", http.StatusBadRequest)
		return
	}
	character, err := h.roster.ParseName(rawCharacter)
	if err != nil {
		http.Error(w, "Unknown character", http.StatusBadRequest)
		return
	}

	start := q.Get("start")
	if start == "" {
		start = h.defaultStart
	}
	state := gatemap.NewState(splitList(q.Get("keys")), splitList(q.Get("options")))

	res, err := h.gates.ReachableNodes(state, character, start)
	if err != nil {
		if errors.Is(err, gatemap.ErrUnknownNode) {
			http.Error(w, "Unknown start region", http.StatusBadRequest)
			return
		}
		log.Error("Failed to compute reachability", "character", character, "start", start, "error", err)
		http.Error(w, "Failed to compute reachability", http.StatusInternalServerError)
		return
	}

	g := h.gates.Graph(character)
	gates := make([]GateStatus, 0, len(g.Edges))
	for _, e := range g.Edges {
		gates = append(gates, GateStatus{
			Name:   e.Name,
			A:      e.A,
			B:      e.B,
			Kind:   e.Kind,
			Usable: h.gates.GateUsable(state, e.Name, character),
		})
	}

	log.Debug("Computed reachability", "character", character, "start", start, "regions", res.Len(), "passes", res.Passes)
	writeJSON(w, log, http.StatusOK, ReachableResponse{
		Character: character,
		Start:     start,
		Regions:   nonNil(res.Regions()),
		Starred:   nonNil(res.Starred()),
		Passes:    res.Passes,
		Gates:     gates,
	})
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
