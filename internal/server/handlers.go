package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/chefatlas/atlas-cli/internal/model"
	"github.com/chefatlas/atlas-cli/internal/store"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// pathID parses the {id} URL parameter; a non-numeric id writes a 400 and
// reports false.
func pathID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

func (s *Server) serverError(w http.ResponseWriter, r *http.Request, err error) {
	s.log.Error("handler error",
		zap.String("request_id", reqID(r.Context())),
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	writeError(w, http.StatusInternalServerError, "internal server error")
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCountries(w http.ResponseWriter, r *http.Request) {
	countries, err := s.store.GetCountries(r.Context())
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	if countries == nil {
		countries = []string{}
	}
	writeJSON(w, http.StatusOK, countries)
}

func (s *Server) handleListRestaurants(w http.ResponseWriter, r *http.Request) {
	filter := store.RestaurantFilter{Country: r.URL.Query().Get("country")}

	if raw := r.URL.Query().Get("season"); raw != "" {
		season, err := strconv.Atoi(raw)
		if err != nil || season <= 0 {
			writeError(w, http.StatusBadRequest, "season must be a positive integer")
			return
		}
		filter.Season = season
	}

	restaurants, err := s.store.ListRestaurants(r.Context(), filter)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, restaurants)
}

func (s *Server) handleGetRestaurant(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	detail, err := s.store.GetRestaurantDetail(r.Context(), id)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	if detail == nil {
		writeError(w, http.StatusNotFound, "restaurant not found")
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handleUpdateRestaurant(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var upd model.RestaurantUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	updated, err := s.store.UpdateRestaurant(r.Context(), id, upd)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	if updated == nil {
		writeError(w, http.StatusNotFound, "restaurant not found")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleFillMissingFields(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	updated, err := s.enricher.FillMissingFields(r.Context(), id)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	if updated == nil {
		writeError(w, http.StatusNotFound, "restaurant not found")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleGetChef(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	detail, err := s.store.GetChefDetail(r.Context(), id)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	if detail == nil {
		writeError(w, http.StatusNotFound, "chef not found")
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handleUpdateChef(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var upd model.ChefUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	updated, err := s.store.UpdateChef(r.Context(), id, upd)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	if updated == nil {
		writeError(w, http.StatusNotFound, "chef not found")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleChefInfo(w http.ResponseWriter, r *http.Request) {
	chefName := r.URL.Query().Get("chefName")
	if chefName == "" {
		writeError(w, http.StatusBadRequest, "chefName is required")
		return
	}
	restaurantName := r.URL.Query().Get("restaurantName")

	bio, err := s.enricher.ChefInfo(r.Context(), chefName, restaurantName)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"info": bio})
}

func (s *Server) handleSeasonsByCountry(w http.ResponseWriter, r *http.Request) {
	country := chi.URLParam(r, "country")
	seasons, err := s.store.ListSeasonsByCountry(r.Context(), country)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, seasons)
}

func (s *Server) handlePanelData(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	panel, err := s.enricher.PanelData(r.Context(), id)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	if panel == nil {
		writeError(w, http.StatusNotFound, "restaurant not found")
		return
	}
	writeJSON(w, http.StatusOK, panel)
}

func (s *Server) handleUpdateData(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Country string `json:"country"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Country == "" {
		writeError(w, http.StatusBadRequest, "country is required")
		return
	}
	summary, err := s.enricher.UpdateCountry(r.Context(), body.Country)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
