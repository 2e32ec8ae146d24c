package handlers

import (
	"io"
	"log/slog"
	"mime/multipart"
	netmail "net/mail"
	"net/http"
	"strconv"

	"github.com/kamala96/email-service/internal/dispatch"
	"github.com/kamala96/email-service/internal/models"
	"github.com/kamala96/email-service/internal/web/middleware"
)

// maxSubmissionBytes bounds the in-memory portion of a multipart submission.
const maxSubmissionBytes = 32 << 20

// SendHandler accepts single and bulk email submissions from authenticated
// clients. Both endpoints answer 202 before any mail moves: execution happens
// on the dispatch worker.
type SendHandler struct {
	dispatcher *dispatch.Service
}

func NewSendHandler(dispatcher *dispatch.Service) *SendHandler {
	return &SendHandler{dispatcher: dispatcher}
}

// HandleSendSingle accepts a multipart form with subject, message and/or
// html_message, recipient, and optional attachment files.
func (h *SendHandler) HandleSendSingle(w http.ResponseWriter, r *http.Request) {
	client := middleware.ClientFromContext(r.Context())

	if err := r.ParseMultipartForm(maxSubmissionBytes); err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidRequest, []string{"invalid multipart form data"})
		return
	}

	subject := r.FormValue("subject")
	message := r.FormValue("message")
	htmlMessage := r.FormValue("html_message")
	recipient := r.FormValue("recipient")

	errs := fieldErrors{}
	if subject == "" {
		errs.add("subject", "this field is required")
	}
	if message == "" && htmlMessage == "" {
		errs.add("message", "either message or html_message must be provided")
	}
	if recipient == "" {
		errs.add("recipient", "this field is required")
	} else if !validAddress(recipient) {
		errs.add("recipient", "enter a valid email address")
	}
	if len(errs) > 0 {
		writeError(w, http.StatusBadRequest, CodeInvalidRequest, errs)
		return
	}

	attachments, err := collectAttachments(r.MultipartForm)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidRequest, fieldErrors{"attachments": {err.Error()}})
		return
	}

	err = h.dispatcher.EnqueueSingle(r.Context(), client, dispatch.SingleRequest{
		Subject:     subject,
		TextBody:    message,
		HTMLBody:    htmlMessage,
		Recipient:   recipient,
		Attachments: attachments,
	})
	if err != nil {
		slog.Error("failed to enqueue single send", "client_id", client.ID, "error", err)
		writeError(w, http.StatusInternalServerError, CodeInternalError, nil)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"success": true,
		"message": "Email sending task has been initiated",
	})
}

// HandleSendBulk accepts a multipart form with a repeated recipient_list
// field and an optional collective flag.
func (h *SendHandler) HandleSendBulk(w http.ResponseWriter, r *http.Request) {
	client := middleware.ClientFromContext(r.Context())

	if err := r.ParseMultipartForm(maxSubmissionBytes); err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidRequest, []string{"invalid multipart form data"})
		return
	}

	subject := r.FormValue("subject")
	message := r.FormValue("message")
	htmlMessage := r.FormValue("html_message")
	recipients := r.MultipartForm.Value["recipient_list"]

	errs := fieldErrors{}
	if subject == "" {
		errs.add("subject", "this field is required")
	}
	if message == "" && htmlMessage == "" {
		errs.add("message", "either message or html_message must be provided")
	}
	if len(recipients) == 0 {
		errs.add("recipient_list", "at least one recipient is required")
	}
	for _, addr := range recipients {
		if !validAddress(addr) {
			errs.add("recipient_list", "enter a valid email address: "+addr)
		}
	}

	collective := false
	if raw := r.FormValue("collective"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			errs.add("collective", "must be a boolean")
		}
		collective = parsed
	}

	if len(errs) > 0 {
		writeError(w, http.StatusBadRequest, CodeInvalidRequest, errs)
		return
	}

	attachments, err := collectAttachments(r.MultipartForm)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidRequest, fieldErrors{"attachments": {err.Error()}})
		return
	}

	err = h.dispatcher.EnqueueBulk(r.Context(), client, dispatch.BulkRequest{
		Subject:     subject,
		TextBody:    message,
		HTMLBody:    htmlMessage,
		Recipients:  recipients,
		Attachments: attachments,
		Collective:  collective,
	})
	if err != nil {
		slog.Error("failed to enqueue bulk send", "client_id", client.ID, "error", err)
		writeError(w, http.StatusInternalServerError, CodeInternalError, nil)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"success": true,
		"message": "Bulk email sending task has been initiated",
	})
}

func validAddress(addr string) bool {
	parsed, err := netmail.ParseAddress(addr)
	return err == nil && parsed.Address == addr
}

// collectAttachments reads every uploaded attachment into the 3-tuple form
// the dispatcher carries across the job boundary.
func collectAttachments(form *multipart.Form) ([]models.Attachment, error) {
	if form == nil {
		return nil, nil
	}

	var attachments []models.Attachment
	for _, header := range form.File["attachments"] {
		file, err := header.Open()
		if err != nil {
			return nil, err
		}
		content, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			return nil, err
		}
		attachments = append(attachments, models.Attachment{
			Filename:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Content:     content,
		})
	}
	return attachments, nil
}
