package resthttp

import (
	"fmt"
	"log"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sir_venger/chat_drive/pkg/httperrors"
)

// getDownload отдаёт собранный файл потоком. Заголовки выставляются до
// первого байта, поэтому ошибка на середине потока обрывает соединение,
// а не подменяет статус.
func (s *Server) getDownload(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "bad file id", http.StatusBadRequest)
		return
	}

	rec, err := s.Downloads.Resolve(r.Context(), id)
	if err != nil {
		httperrors.Write(w, err)
		return
	}

	ctype := mime.TypeByExtension(filepath.Ext(rec.Filename))
	if ctype == "" {
		ctype = "application/octet-stream"
	}
	w.Header().Set("Content-Type", ctype)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", rec.Filename))
	if rec.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(rec.Size, 10))
	}

	if err := s.Downloads.Stream(r.Context(), rec, w); err != nil {
		log.Printf("rest: download file %d: %v", id, err)
	}
}
