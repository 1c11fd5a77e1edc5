package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"altarmaker/internal/store"
)

// defaultWalls is the empty canvas returned before a user has saved anything.
func defaultWalls() map[string]interface{} {
	walls := map[string]interface{}{}
	for _, name := range []string{"front", "back", "left", "right"} {
		walls[name] = map[string]interface{}{"elements": []interface{}{}, "wallpaper": nil}
	}
	return walls
}

func (s *Server) handleGetWallDesigns(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())

	design, err := s.Designs.LatestWallDesign(r.Context(), sess.UserID)
	if err != nil {
		log.Error().Err(err).Msg("failed to load wall designs")
		writeError(w, http.StatusInternalServerError, "Failed to get wall designs")
		return
	}

	if design == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"wallDesigns":    defaultWalls(),
			"roomType":       "",
			"roomDimensions": map[string]interface{}{"length": 8, "width": 8, "height": 4},
			"selectedWall":   "",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"wallDesigns":    design.Walls,
		"roomType":       design.RoomType,
		"roomDimensions": design.RoomDimensions,
		"selectedWall":   design.SelectedWall,
	})
}

type wallDesignRequest struct {
	WallDesigns    map[string]interface{} `json:"wallDesigns"`
	RoomType       string                 `json:"roomType"`
	RoomDimensions map[string]interface{} `json:"roomDimensions"`
	SelectedWall   string                 `json:"selectedWall"`
}

func (s *Server) handleSaveWallDesigns(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())

	var req wallDesignRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	// Drop walls with no content so empty canvases do not bloat documents.
	walls := map[string]interface{}{}
	for name, raw := range req.WallDesigns {
		wall, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		elements, _ := wall["elements"].([]interface{})
		if len(elements) > 0 || wall["wallpaper"] != nil {
			walls[name] = map[string]interface{}{
				"elements":  elements,
				"wallpaper": wall["wallpaper"],
			}
		}
	}

	design := &store.WallDesign{
		UserID:         sess.UserID,
		Walls:          walls,
		RoomType:       req.RoomType,
		RoomDimensions: req.RoomDimensions,
		SelectedWall:   req.SelectedWall,
	}
	if _, err := s.Designs.SaveWallDesign(r.Context(), design); err != nil {
		log.Error().Err(err).Msg("failed to save wall designs")
		writeError(w, http.StatusInternalServerError, "Failed to save wall designs")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Wall designs saved successfully",
	})
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())

	sessions, err := s.Designs.ListSessions(r.Context(), sess.UserID)
	if err != nil {
		log.Error().Err(err).Msg("failed to list design sessions")
		writeError(w, http.StatusInternalServerError, "Failed to get sessions")
		return
	}
	if sessions == nil {
		sessions = []store.DesignSession{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"sessions": sessions})
}

type designSessionRequest struct {
	Name           string                 `json:"session_name"`
	RoomType       string                 `json:"room_type"`
	RoomDimensions map[string]interface{} `json:"room_dimensions"`
	WallDesigns    map[string]interface{} `json:"wall_designs"`
	SelectedWall   string                 `json:"selected_wall"`
}

func (s *Server) handleSaveSession(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())

	var req designSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	ds := &store.DesignSession{
		UserID:         sess.UserID,
		Name:           req.Name,
		RoomType:       req.RoomType,
		RoomDimensions: req.RoomDimensions,
		WallDesigns:    req.WallDesigns,
		SelectedWall:   req.SelectedWall,
	}
	if _, err := s.Designs.CreateSession(r.Context(), ds); err != nil {
		log.Error().Err(err).Msg("failed to save design session")
		writeError(w, http.StatusInternalServerError, "Failed to save session")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Session saved successfully",
		"session": ds,
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())

	ds, err := s.Designs.GetSession(r.Context(), sess.UserID, chi.URLParam(r, "id"))
	if err != nil {
		writeDesignStoreError(w, err, "Failed to get session")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"session": ds})
}

func (s *Server) handleUpdateSession(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())

	var req designSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	ds := &store.DesignSession{
		Name:           req.Name,
		RoomType:       req.RoomType,
		RoomDimensions: req.RoomDimensions,
		WallDesigns:    req.WallDesigns,
		SelectedWall:   req.SelectedWall,
	}
	if err := s.Designs.UpdateSession(r.Context(), sess.UserID, chi.URLParam(r, "id"), ds); err != nil {
		writeDesignStoreError(w, err, "Failed to update session")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Session updated successfully"})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())

	if err := s.Designs.DeleteSession(r.Context(), sess.UserID, chi.URLParam(r, "id")); err != nil {
		writeDesignStoreError(w, err, "Failed to delete session")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Session deleted successfully"})
}

func writeDesignStoreError(w http.ResponseWriter, err error, fallback string) {
	switch err {
	case store.ErrInvalidID:
		writeError(w, http.StatusBadRequest, "Invalid session ID")
	case store.ErrNotFound:
		writeError(w, http.StatusNotFound, "Session not found")
	default:
		log.Error().Err(err).Msg(fallback)
		writeError(w, http.StatusInternalServerError, fallback)
	}
}
