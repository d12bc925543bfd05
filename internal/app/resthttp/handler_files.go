package resthttp

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sir_venger/chat_drive/internal/models"
	"github.com/sir_venger/chat_drive/pkg/httperrors"
)

func (s *Server) getFiles(w http.ResponseWriter, r *http.Request) {
	folderID := models.FlexID(r.URL.Query().Get("folder_id"))

	files, err := s.Files.Files(r.Context(), folderID)
	if err != nil {
		httperrors.Write(w, err)
		return
	}
	writeJSON(w, files)
}

func (s *Server) getSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		http.Error(w, "query parameter q is required", http.StatusBadRequest)
		return
	}

	files, err := s.Files.Search(r.Context(), query)
	if err != nil {
		httperrors.Write(w, err)
		return
	}
	writeJSON(w, files)
}

func (s *Server) getStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.Files.Stats(r.Context())
	if err != nil {
		httperrors.Write(w, err)
		return
	}
	writeJSON(w, stats)
}

type renameRequest struct {
	Name string `json:"name"`
}

func (s *Server) postFileRename(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "bad file id", http.StatusBadRequest)
		return
	}
	var payload renameRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := s.Files.RenameFile(r.Context(), id, payload.Name); err != nil {
		httperrors.Write(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type moveRequest struct {
	FolderID models.FlexID `json:"folder_id"`
}

func (s *Server) postFileMove(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "bad file id", http.StatusBadRequest)
		return
	}
	var payload moveRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := s.Files.MoveFile(r.Context(), id, payload.FolderID); err != nil {
		httperrors.Write(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) deleteFile(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "bad file id", http.StatusBadRequest)
		return
	}
	deleteChannel := r.URL.Query().Get("keep_channel") == ""

	if err := s.Files.DeleteFile(r.Context(), id, deleteChannel); err != nil {
		httperrors.Write(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
