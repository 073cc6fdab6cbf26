package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
)

// ErrAuth is returned when the IMAP server rejects the credentials.
var ErrAuth = errors.New("imap authentication failed")

// Mailer hands a composed message to a mail store.
type Mailer interface {
	Deliver(ctx context.Context, msg []byte) error
}

// IMAPMailer appends messages to a mailbox on an IMAP server.
type IMAPMailer struct {
	host     string
	port     string
	username string
	password string
	tls      bool
	mailbox  string
}

// NewIMAPMailer creates an IMAP mailer configuration.
func NewIMAPMailer(host, port, username, password string, tls bool, mailbox string) *IMAPMailer {
	return &IMAPMailer{
		host:     host,
		port:     port,
		username: username,
		password: password,
		tls:      tls,
		mailbox:  mailbox,
	}
}

// connect establishes a connection to the IMAP server and authenticates.
// The caller is responsible for logging out.
func (m *IMAPMailer) connect() (*imapclient.Client, error) {
	addr := m.host + ":" + m.port

	var client *imapclient.Client
	var err error

	if m.tls {
		client, err = imapclient.DialTLS(addr, nil)
	} else {
		client, err = imapclient.DialStartTLS(addr, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("connecting to IMAP %s: %w", addr, err)
	}

	if err := client.Login(m.username, m.password).Wait(); err != nil {
		_ = client.Logout().Wait()
		return nil, fmt.Errorf("%w for %s: %v", ErrAuth, m.username, err)
	}

	return client, nil
}

// Deliver appends msg to the configured mailbox, creating the mailbox on
// first use.
func (m *IMAPMailer) Deliver(ctx context.Context, msg []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	client, err := m.connect()
	if err != nil {
		return err
	}
	defer func() { _ = client.Logout().Wait() }()

	// Fails harmlessly when the mailbox already exists.
	_ = client.Create(m.mailbox, nil).Wait()

	cmd := client.Append(m.mailbox, int64(len(msg)), &imap.AppendOptions{
		Time: time.Now(),
	})
	if _, err := cmd.Write(msg); err != nil {
		return fmt.Errorf("writing message to %s: %w", m.mailbox, err)
	}
	if err := cmd.Close(); err != nil {
		return fmt.Errorf("closing append to %s: %w", m.mailbox, err)
	}
	if _, err := cmd.Wait(); err != nil {
		return fmt.Errorf("appending to %s: %w", m.mailbox, err)
	}
	return nil
}
