// Package notify delivers queued assignment notices to an IMAP mailbox.
package notify

import (
	"bytes"
	"fmt"
	"io"

	"github.com/emersion/go-message/mail"

	"github.com/nhle/task-tracker/internal/model"
)

// Compose renders a notice addressed to user as an RFC 5322 message.
func Compose(from string, user model.User, n model.Notice) ([]byte, error) {
	var h mail.Header
	h.SetDate(n.CreatedAt)
	h.SetAddressList("From", []*mail.Address{{Name: "Task Tracker", Address: from}})
	h.SetAddressList("To", []*mail.Address{{Name: user.FullName, Address: user.Email}})
	h.SetSubject("New task assignment")
	h.SetContentType("text/plain", map[string]string{"charset": "utf-8"})
	h.SetMessageID(n.ID + "@tasktracker")
	h.Set("X-Tasktracker-Task", n.TaskID)

	var buf bytes.Buffer
	w, err := mail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("creating message writer: %w", err)
	}
	if _, err := io.WriteString(w, n.Message+"\r\n"); err != nil {
		return nil, fmt.Errorf("writing message body: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("closing message writer: %w", err)
	}
	return buf.Bytes(), nil
}
