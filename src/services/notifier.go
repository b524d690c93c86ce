package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mailgun/mailgun-go/v4"
	"github.com/username/tradevault/src/config"
	"github.com/username/tradevault/src/logger"
)

// Notifier sends the user a summary of a completed import.
type Notifier interface {
	SendImportSummary(toEmail string, result *ImportResult) error
}

// NewNotifier picks the provider from config, falling back to a mock that
// only logs.
func NewNotifier() Notifier {
	if config.Cfg == nil {
		return &MockNotifier{}
	}
	switch strings.ToLower(config.Cfg.EmailServiceProvider) {
	case "mailgun":
		if config.Cfg.MailgunDomain == "" || config.Cfg.MailgunPrivateAPIKey == "" {
			logger.L.Warn("Mailgun configuration incomplete. Falling back to mock notifier.")
			return &MockNotifier{}
		}
		mg := mailgun.NewMailgun(config.Cfg.MailgunDomain, config.Cfg.MailgunPrivateAPIKey)
		return &MailgunNotifier{
			mg:          mg,
			senderEmail: config.Cfg.SenderEmail,
			senderName:  config.Cfg.SenderName,
		}
	default:
		return &MockNotifier{}
	}
}

type MailgunNotifier struct {
	mg          mailgun.Mailgun
	senderEmail string
	senderName  string
}

func (n *MailgunNotifier) SendImportSummary(toEmail string, result *ImportResult) error {
	from := fmt.Sprintf("%s <%s>", n.senderName, n.senderEmail)
	subject := fmt.Sprintf("Import complete: %d new, %d updated", result.Inserted, result.Updated)

	body := fmt.Sprintf(`Your trade import (batch %s) has finished.

Inserted: %d
Updated:  %d
Days affected: %s
`, result.BatchID, result.Inserted, result.Updated, strings.Join(result.DatesTouched, ", "))

	if len(result.Errors) > 0 {
		body += fmt.Sprintf("\n%d row(s) could not be imported:\n", len(result.Errors))
		for _, rowErr := range result.Errors {
			body += "  - " + rowErr + "\n"
		}
	}

	message := n.mg.NewMessage(from, subject, body, toEmail)
	message.AddTag("import-summary")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	resp, id, err := n.mg.Send(ctx, message)
	if err != nil {
		logger.L.Error("Failed to send import summary via Mailgun", "error", err, "to", toEmail, "mailgunResp", resp)
		return fmt.Errorf("mailgun send failed: %w", err)
	}
	logger.L.Info("Import summary sent", "to", toEmail, "id", id)
	return nil
}

type MockNotifier struct{}

func (n *MockNotifier) SendImportSummary(toEmail string, result *ImportResult) error {
	logger.L.Info("MockNotifier: would send import summary",
		"to", toEmail, "batchID", result.BatchID,
		"inserted", result.Inserted, "updated", result.Updated, "rowErrors", len(result.Errors))
	return nil
}
