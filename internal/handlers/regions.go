package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/jwebster45206/slugrando/internal/middleware"
	"github.com/jwebster45206/slugrando/pkg/access"
	"github.com/jwebster45206/slugrando/pkg/slugcat"
)

// CacheStore is the part of tokencache.Store the HTTP surface uses.
type CacheStore interface {
	BuildOrLoad(ctx context.Context, region string) (*access.Cache, error)
	RoomAccessibility(ctx context.Context, region string) (access.Family[slugcat.Name], error)
	Clear()
	Cached() []string
	Loaded() bool
	RebuildRequested(ctx context.Context) (bool, error)
}

// RegionSummary describes a region in the listing.
type RegionSummary struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Cached bool   `json:"cached"`
}

// CacheResponse is the JSON form of a region cache.
type CacheResponse struct {
	Region       string                        `json:"region"`
	Objects      map[string][]slugcat.Name     `json:"objects"`
	Creatures    map[string][]slugcat.Name     `json:"creatures"`
	Shelters     map[string][]slugcat.Timeline `json:"shelters"`
	DevTokens    map[string][]slugcat.Name     `json:"dev_tokens"`
	KarmaFlowers map[string][]slugcat.Name     `json:"karma_flowers"`
	Rooms        map[string][]slugcat.Name     `json:"rooms"`
}

func familyJSON[T ~string](f access.Family[T]) map[string][]T {
	out := make(map[string][]T, len(f))
	for k, v := range f {
		out[k] = v.Sorted()
	}
	return out
}

// NewCacheResponse converts a cache for encoding.
func NewCacheResponse(c *access.Cache) CacheResponse {
	return CacheResponse{
		Region:       c.Region,
		Objects:      familyJSON(c.Objects),
		Creatures:    familyJSON(c.Creatures),
		Shelters:     familyJSON(c.Shelters),
		DevTokens:    familyJSON(c.DevTokens),
		KarmaFlowers: familyJSON(c.KarmaFlowers),
		Rooms:        familyJSON(c.Rooms),
	}
}

// RegionHandler serves /v1/regions, /v1/regions/{code}/rooms and /v1/regions/{code}/cache.
type RegionHandler struct {
	log    *slog.Logger
	store  CacheStore
	roster *slugcat.Roster
}

func NewRegionHandler(log *slog.Logger, store CacheStore, roster *slugcat.Roster) *RegionHandler {
	return &RegionHandler{
		log:    log,
		store:  store,
		roster: roster,
	}
}

func (h *RegionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if r.URL.Path == "/v1/regions" || r.URL.Path == "/v1/regions/" {
			h.handleList(w, r)
		} else {
			h.handleGet(w, r)
		}
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *RegionHandler) handleList(w http.ResponseWriter, r *http.Request) {
	cached := make(map[string]bool)
	for _, code := range h.store.Cached() {
		cached[code] = true
	}

	list := make([]RegionSummary, 0, len(h.roster.Regions))
	for _, reg := range h.roster.Regions {
		code := strings.ToUpper(reg.Code)
		list = append(list, RegionSummary{Code: code, Name: reg.DisplayName(), Cached: cached[code]})
	}
	writeJSON(w, h.log, http.StatusOK, list)
}

func (h *RegionHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	log := middleware.Logger(r.Context(), h.log)

	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/regions/"), "/"), "/")
	if len(parts) != 2 || parts[0] == "" {
		http.Error(w, "expected /v1/regions/{code}/rooms or /v1/regions/{code}/cache", http.StatusBadRequest)
		return
	}
	code := strings.ToUpper(parts[0])
	if !access.ValidIdentity(code) || strings.ContainsAny(code, `./\`) {
		http.Error(w, "Invalid region code", http.StatusBadRequest)
		return
	}
	if _, ok := h.roster.Region(code); !ok {
		http.Error(w, "Region not found", http.StatusNotFound)
		return
	}

	switch parts[1] {
	case "rooms":
		rooms, err := h.store.RoomAccessibility(r.Context(), code)
		if err != nil {
			log.Error("Failed to build room accessibility", "region", code, "error", err)
			http.Error(w, "Failed to build region data", http.StatusInternalServerError)
			return
		}
		writeJSON(w, log, http.StatusOK, familyJSON(rooms))
	case "cache":
		c, err := h.store.BuildOrLoad(r.Context(), code)
		if err != nil {
			log.Error("Failed to build region cache", "region", code, "error", err)
			http.Error(w, "Failed to build region data", http.StatusInternalServerError)
			return
		}
		writeJSON(w, log, http.StatusOK, NewCacheResponse(c))
	default:
		http.Error(w, "Not found", http.StatusNotFound)
	}
}

// CacheHandler serves POST /v1/cache/clear.
type CacheHandler struct {
	log   *slog.Logger
	store CacheStore
}

func NewCacheHandler(log *slog.Logger, store CacheStore) *CacheHandler {
	return &CacheHandler{log: log, store: store}
}

func (h *CacheHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if strings.TrimSuffix(r.URL.Path, "/") != "/v1/cache/clear" {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}

	dropped := len(h.store.Cached())
	h.store.Clear()
	middleware.Logger(r.Context(), h.log).Info("Cleared in-memory caches", "regions", dropped)
	writeJSON(w, h.log, http.StatusOK, map[string]int{"cleared": dropped})
}

func writeJSON(w http.ResponseWriter, log *slog.Logger, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Error("Failed to marshal response", "error", err)
		http.Error(w, "Failed to process response", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		log.Error("Failed to write response", "error", err)
	}
}
