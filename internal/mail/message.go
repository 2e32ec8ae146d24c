package mail

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/textproto"
	"strings"
)

// BuildMessage renders msg as an RFC 5322 message. Plain single-body messages
// without attachments stay flat; anything richer becomes multipart/mixed with
// a multipart/alternative body part and base64-encoded attachments.
func BuildMessage(from string, msg Message) ([]byte, error) {
	if msg.TextBody == "" && msg.HTMLBody == "" {
		return nil, fmt.Errorf("message has no body")
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "From: %s\r\n", from)
	fmt.Fprintf(&buf, "To: %s\r\n", strings.Join(msg.To, ", "))
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	buf.WriteString("MIME-Version: 1.0\r\n")

	if len(msg.Attachments) == 0 && (msg.TextBody == "" || msg.HTMLBody == "") {
		contentType := "text/plain"
		body := msg.TextBody
		if msg.HTMLBody != "" {
			contentType = "text/html"
			body = msg.HTMLBody
		}
		fmt.Fprintf(&buf, "Content-Type: %s; charset=\"UTF-8\"\r\n\r\n", contentType)
		buf.WriteString(body)
		return buf.Bytes(), nil
	}

	mixed := multipart.NewWriter(&buf)
	fmt.Fprintf(&buf, "Content-Type: multipart/mixed; boundary=%q\r\n\r\n", mixed.Boundary())

	if err := writeBodyParts(mixed, msg); err != nil {
		return nil, err
	}

	for _, att := range msg.Attachments {
		contentType := att.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		header := textproto.MIMEHeader{}
		header.Set("Content-Type", contentType)
		header.Set("Content-Transfer-Encoding", "base64")
		header.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", att.Filename))
		part, err := mixed.CreatePart(header)
		if err != nil {
			return nil, fmt.Errorf("failed to create attachment part: %w", err)
		}
		if err := writeBase64(part, att.Content); err != nil {
			return nil, err
		}
	}

	if err := mixed.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize message: %w", err)
	}
	return buf.Bytes(), nil
}

func writeBodyParts(mixed *multipart.Writer, msg Message) error {
	if msg.TextBody != "" && msg.HTMLBody != "" {
		var alt bytes.Buffer
		altWriter := multipart.NewWriter(&alt)
		if err := writeTextPart(altWriter, "text/plain", msg.TextBody); err != nil {
			return err
		}
		if err := writeTextPart(altWriter, "text/html", msg.HTMLBody); err != nil {
			return err
		}
		if err := altWriter.Close(); err != nil {
			return err
		}

		header := textproto.MIMEHeader{}
		header.Set("Content-Type", fmt.Sprintf("multipart/alternative; boundary=%q", altWriter.Boundary()))
		part, err := mixed.CreatePart(header)
		if err != nil {
			return fmt.Errorf("failed to create alternative part: %w", err)
		}
		_, err = part.Write(alt.Bytes())
		return err
	}

	contentType := "text/plain"
	body := msg.TextBody
	if msg.HTMLBody != "" {
		contentType = "text/html"
		body = msg.HTMLBody
	}
	return writeTextPart(mixed, contentType, body)
}

func writeTextPart(w *multipart.Writer, contentType, body string) error {
	header := textproto.MIMEHeader{}
	header.Set("Content-Type", contentType+"; charset=\"UTF-8\"")
	part, err := w.CreatePart(header)
	if err != nil {
		return fmt.Errorf("failed to create body part: %w", err)
	}
	_, err = part.Write([]byte(body))
	return err
}

func writeBase64(w io.Writer, data []byte) error {
	encoded := base64.StdEncoding.EncodeToString(data)
	// Wrap at 76 characters per RFC 2045.
	for len(encoded) > 0 {
		line := encoded
		if len(line) > 76 {
			line = line[:76]
		}
		if _, err := fmt.Fprintf(w, "%s\r\n", line); err != nil {
			return err
		}
		encoded = encoded[len(line):]
	}
	return nil
}
