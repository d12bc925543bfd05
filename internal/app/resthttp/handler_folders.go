package resthttp

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sir_venger/chat_drive/internal/models"
	"github.com/sir_venger/chat_drive/pkg/httperrors"
)

func (s *Server) getFolders(w http.ResponseWriter, r *http.Request) {
	folders, err := s.Files.Folders(r.Context())
	if err != nil {
		httperrors.Write(w, err)
		return
	}
	writeJSON(w, folders)
}

type createFolderRequest struct {
	Name     string        `json:"name"`
	ParentID models.FlexID `json:"parent_id"`
}

func (s *Server) postFolders(w http.ResponseWriter, r *http.Request) {
	var payload createFolderRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	folder, err := s.Files.CreateFolder(r.Context(), payload.Name, payload.ParentID)
	if err != nil {
		httperrors.Write(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(folder)
}

func (s *Server) postFolderRename(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "bad folder id", http.StatusBadRequest)
		return
	}
	var payload renameRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := s.Files.RenameFolder(r.Context(), id, payload.Name); err != nil {
		httperrors.Write(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type moveFolderRequest struct {
	ParentID models.FlexID `json:"parent_id"`
}

func (s *Server) postFolderMove(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "bad folder id", http.StatusBadRequest)
		return
	}
	var payload moveFolderRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := s.Files.MoveFolder(r.Context(), id, payload.ParentID); err != nil {
		httperrors.Write(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) deleteFolder(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "bad folder id", http.StatusBadRequest)
		return
	}
	force := r.URL.Query().Get("force") != ""

	if err := s.Files.DeleteFolder(r.Context(), id, force); err != nil {
		httperrors.Write(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
