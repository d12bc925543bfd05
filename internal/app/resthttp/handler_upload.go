package resthttp

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sir_venger/chat_drive/internal/models"
	"github.com/sir_venger/chat_drive/internal/usecase/uploadsvc"
	"github.com/sir_venger/chat_drive/pkg/httperrors"
)

type uploadStartRequest struct {
	Filename    string        `json:"filename"`
	FolderID    models.FlexID `json:"folder_id"`
	Size        int64         `json:"size,omitempty"`
	TotalChunks int           `json:"total_chunks,omitempty"`
	Message     string        `json:"message,omitempty"`
	ResumeID    string        `json:"resume_id,omitempty"`
}

type uploadStartResponse struct {
	SessionID string `json:"session_id"`
	ChunkSize int64  `json:"chunk_size"`
	Received  []int  `json:"received"`
}

func (s *Server) postUploadStart(w http.ResponseWriter, r *http.Request) {
	var payload uploadStartRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	res, err := s.Uploads.Start(r.Context(), uploadsvc.StartRequest{
		Filename:    payload.Filename,
		FolderID:    payload.FolderID,
		Size:        payload.Size,
		TotalChunks: payload.TotalChunks,
		Message:     payload.Message,
		ResumeID:    payload.ResumeID,
	})
	if err != nil {
		httperrors.Write(w, err)
		return
	}

	writeJSON(w, uploadStartResponse{
		SessionID: res.SessionID,
		ChunkSize: res.ChunkSize,
		Received:  res.Received,
	})
}

type uploadChunkResponse struct {
	Received int `json:"received"`
	Total    int `json:"total,omitempty"`
}

// postUploadChunk принимает тело чанка как сырой поток. Индекс в пути —
// нулевой, строго следующий ожидаемый.
func (s *Server) postUploadChunk(w http.ResponseWriter, r *http.Request) {
	sid := chi.URLParam(r, "sid")
	idx, err := strconv.Atoi(chi.URLParam(r, "idx"))
	if err != nil {
		http.Error(w, "bad chunk index", http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, s.Cfg.ChunkSizeBytes()+1))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	res, err := s.Uploads.Submit(r.Context(), sid, idx, data)
	if err != nil {
		httperrors.Write(w, err)
		return
	}

	writeJSON(w, uploadChunkResponse{Received: res.Received, Total: res.Total})
}

type uploadFinalizeRequest struct {
	Sha256 string `json:"sha256,omitempty"`
}

type uploadFinalizeResponse struct {
	FileID int64 `json:"file_id"`
}

func (s *Server) postUploadFinalize(w http.ResponseWriter, r *http.Request) {
	sid := chi.URLParam(r, "sid")

	var payload uploadFinalizeRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	fileID, err := s.Uploads.Finalize(r.Context(), sid, payload.Sha256)
	if err != nil {
		httperrors.Write(w, err)
		return
	}

	writeJSON(w, uploadFinalizeResponse{FileID: fileID})
}

func (s *Server) postUploadCancel(w http.ResponseWriter, r *http.Request) {
	if err := s.Uploads.Cancel(r.Context(), chi.URLParam(r, "sid")); err != nil {
		httperrors.Write(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
