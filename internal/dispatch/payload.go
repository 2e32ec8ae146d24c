package dispatch

import "github.com/kamala96/email-service/internal/models"

// Job types stored on send_jobs rows.
const (
	JobTypeSingle = "single_send"
	JobTypeBulk   = "bulk_send"
)

// SingleJobPayload is the serialized form of a single-email job.
type SingleJobPayload struct {
	ClientID    int64               `json:"client_id"`
	Subject     string              `json:"subject"`
	TextBody    string              `json:"text_body,omitempty"`
	HTMLBody    string              `json:"html_body,omitempty"`
	Recipient   string              `json:"recipient"`
	Attachments []models.Attachment `json:"attachments,omitempty"`
}

// BulkJobPayload is the serialized form of a bulk-email job. Collective
// sends address every recipient in one transmission; individual sends are
// chunked and fanned out.
type BulkJobPayload struct {
	ClientID    int64               `json:"client_id"`
	Subject     string              `json:"subject"`
	TextBody    string              `json:"text_body,omitempty"`
	HTMLBody    string              `json:"html_body,omitempty"`
	Recipients  []string            `json:"recipients"`
	Attachments []models.Attachment `json:"attachments,omitempty"`
	Collective  bool                `json:"collective,omitempty"`
}
