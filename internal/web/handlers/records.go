package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/kamala96/email-service/internal/models"
	"github.com/kamala96/email-service/internal/store"
	"github.com/kamala96/email-service/internal/web/middleware"
)

// RecordsHandler serves the caller's delivery audit trail. Bulk failure is
// only observable here: the submission endpoints answered 202 long before
// any chunk ran.
type RecordsHandler struct {
	records store.SendRecordStore
}

func NewRecordsHandler(records store.SendRecordStore) *RecordsHandler {
	return &RecordsHandler{records: records}
}

type recordResponse struct {
	ID           uuid.UUID `json:"id"`
	Subject      string    `json:"subject"`
	Recipient    string    `json:"recipient"`
	Status       string    `json:"status"`
	ErrorMessage string    `json:"error_message,omitempty"`
	TaskKind     string    `json:"task_kind"`
	Timestamp    time.Time `json:"timestamp"`
}

// HandleListRecords returns the authenticated client's SendRecords, newest
// first. Query params: status (Sent|Failed), limit, offset.
func (h *RecordsHandler) HandleListRecords(w http.ResponseWriter, r *http.Request) {
	client := middleware.ClientFromContext(r.Context())

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	status := r.URL.Query().Get("status")
	if status != "" && status != string(models.StatusSent) && status != string(models.StatusFailed) {
		writeError(w, http.StatusBadRequest, CodeInvalidRequest, fieldErrors{"status": {"must be Sent or Failed"}})
		return
	}

	records, err := h.records.ListSendRecords(r.Context(), models.SendRecordQuery{
		ClientID: client.ID,
		Status:   status,
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		slog.Error("failed to list send records", "client_id", client.ID, "error", err)
		writeError(w, http.StatusInternalServerError, CodeInternalError, nil)
		return
	}

	out := make([]recordResponse, 0, len(records))
	for _, record := range records {
		out = append(out, recordResponse{
			ID:           record.PublicID,
			Subject:      record.Subject,
			Recipient:    record.Recipient,
			Status:       string(record.Status),
			ErrorMessage: record.ErrorMessage,
			TaskKind:     string(record.TaskKind),
			Timestamp:    record.CreatedAt,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"records": out,
	})
}
