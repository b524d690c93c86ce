package services

import (
	"bytes"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/username/tradevault/src/logger"
	"github.com/username/tradevault/src/models"
	"github.com/username/tradevault/src/parsers"
	"github.com/username/tradevault/src/storage"
	"golang.org/x/net/html"
)

// Recipients look like journal+<token>@<domain>; the plus suffix carries the
// per-user routing token.
var recipientTokenRe = regexp.MustCompile(`(?i)^[a-z0-9._-]+\+([a-z0-9-]+)@`)

// Subjects may name the target account as [tag] or "account: tag".
var (
	subjectBracketTagRe = regexp.MustCompile(`\[([A-Za-z0-9_-]+)\]`)
	subjectAccountRe    = regexp.MustCompile(`(?i)account[:\s]+([A-Za-z0-9_-]+)`)
)

// EmailIngestResult summarizes what one inbound email produced.
type EmailIngestResult struct {
	UserID          int64           `json:"user_id"`
	AccountID       int64           `json:"account_id"`
	Imports         []*ImportResult `json:"imports,omitempty"`
	JournalEntryIDs []string        `json:"journal_entry_ids,omitempty"`
	Errors          []string        `json:"errors,omitempty"`
}

// InboundEmailService routes a decoded inbound email to its owner and
// ingests its attachments: CSVs go through the import orchestrator, images
// become journal annotations.
type InboundEmailService struct {
	tokens        storage.TokenStore
	accounts      storage.AccountStore
	importService *ImportService
	journal       storage.JournalStore
	notifier      Notifier
	attachmentDir string
	entropy       *ulid.MonotonicEntropy
}

func NewInboundEmailService(tokens storage.TokenStore, accounts storage.AccountStore,
	importService *ImportService, journal storage.JournalStore, notifier Notifier,
	attachmentDir string) *InboundEmailService {
	return &InboundEmailService{
		tokens:        tokens,
		accounts:      accounts,
		importService: importService,
		journal:       journal,
		notifier:      notifier,
		attachmentDir: attachmentDir,
		entropy:       ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
	}
}

// HandleEmail resolves the routing token from the recipient address and the
// account tag from the subject, then ingests each recognized attachment. An
// unresolvable token rejects the whole email; an unknown account tag falls
// back to the user's default account.
func (s *InboundEmailService) HandleEmail(mail models.InboundEmail) (*EmailIngestResult, error) {
	token := extractRecipientToken(mail.Recipient)
	if token == "" {
		return nil, ErrUnknownToken
	}
	userID, err := s.tokens.ResolveUserByToken(token)
	if err != nil {
		if err == storage.ErrNotFound {
			return nil, ErrUnknownToken
		}
		return nil, fmt.Errorf("%w: resolving token: %v", ErrStorageUnavailable, err)
	}

	account, err := s.resolveAccount(userID, mail.Subject)
	if err != nil {
		return nil, err
	}

	result := &EmailIngestResult{UserID: userID, AccountID: account.ID}
	bodyText := emailBodyText(mail)

	for _, attachment := range mail.Attachments {
		switch {
		case isCSVAttachment(attachment):
			importResult, err := s.importCSVAttachment(userID, account.ID, attachment)
			if err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", attachment.Filename, err))
				continue
			}
			result.Imports = append(result.Imports, importResult)
		case isImageAttachment(attachment):
			entryID, err := s.storeImageAnnotation(userID, account.ID, attachment, bodyText)
			if err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", attachment.Filename, err))
				continue
			}
			result.JournalEntryIDs = append(result.JournalEntryIDs, entryID)
		default:
			logger.L.Debug("Ignoring unrecognized attachment",
				"userID", userID, "filename", attachment.Filename, "contentType", attachment.ContentType)
		}
	}

	if s.notifier != nil {
		for _, importResult := range result.Imports {
			if err := s.notifier.SendImportSummary(mail.Sender, importResult); err != nil {
				logger.L.Warn("Failed to send import summary", "to", mail.Sender, "error", err)
			}
		}
	}

	logger.L.Info("Inbound email processed",
		"userID", userID, "accountID", account.ID,
		"imports", len(result.Imports), "annotations", len(result.JournalEntryIDs),
		"errors", len(result.Errors))
	return result, nil
}

func (s *InboundEmailService) resolveAccount(userID int64, subject string) (*models.Account, error) {
	if tag := extractSubjectTag(subject); tag != "" {
		account, err := s.accounts.FindByTag(userID, strings.ToLower(tag))
		if err != nil {
			return nil, fmt.Errorf("%w: resolving account: %v", ErrStorageUnavailable, err)
		}
		if account != nil {
			return account, nil
		}
		logger.L.Warn("Subject account tag not found, using default account",
			"userID", userID, "tag", tag)
	}
	account, err := s.accounts.EnsureDefault(userID)
	if err != nil {
		return nil, fmt.Errorf("%w: ensuring default account: %v", ErrStorageUnavailable, err)
	}
	return account, nil
}

func (s *InboundEmailService) importCSVAttachment(userID, accountID int64, attachment models.EmailAttachment) (*ImportResult, error) {
	headers, records, err := parsers.ReadRecords(bytes.NewReader(attachment.Data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParsingFailed, err)
	}
	source, spec, ok := parsers.Detect(headers)
	if !ok {
		return nil, fmt.Errorf("%w: no known source signature matches the attachment header", ErrParsingFailed)
	}
	logger.L.Info("Detected attachment source", "userID", userID, "source", source)
	return s.importService.ImportBatch(userID, accountID, records, spec, models.SourceEmail)
}

func (s *InboundEmailService) storeImageAnnotation(userID, accountID int64, attachment models.EmailAttachment, bodyText string) (string, error) {
	if err := os.MkdirAll(s.attachmentDir, 0o755); err != nil {
		return "", fmt.Errorf("creating attachment dir: %w", err)
	}
	entryID := ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
	path := filepath.Join(s.attachmentDir, entryID+filepath.Ext(attachment.Filename))
	if err := os.WriteFile(path, attachment.Data, 0o644); err != nil {
		return "", fmt.Errorf("writing attachment: %w", err)
	}

	entry := &models.JournalEntry{
		ID:             entryID,
		UserID:         userID,
		AccountID:      accountID,
		Date:           time.Now().UTC().Format("2006-01-02"),
		Text:           bodyText,
		AttachmentPath: path,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.journal.Insert(entry); err != nil {
		return "", fmt.Errorf("%w: storing journal entry: %v", ErrStorageUnavailable, err)
	}
	return entryID, nil
}

func extractRecipientToken(recipient string) string {
	m := recipientTokenRe.FindStringSubmatch(strings.TrimSpace(recipient))
	if m == nil {
		return ""
	}
	return m[1]
}

func extractSubjectTag(subject string) string {
	if m := subjectBracketTagRe.FindStringSubmatch(subject); m != nil {
		return m[1]
	}
	if m := subjectAccountRe.FindStringSubmatch(subject); m != nil {
		return m[1]
	}
	return ""
}

func isCSVAttachment(a models.EmailAttachment) bool {
	if strings.EqualFold(filepath.Ext(a.Filename), ".csv") {
		return true
	}
	return strings.Contains(strings.ToLower(a.ContentType), "text/csv")
}

func isImageAttachment(a models.EmailAttachment) bool {
	switch strings.ToLower(filepath.Ext(a.Filename)) {
	case ".png", ".jpg", ".jpeg", ".gif":
		return true
	}
	return strings.HasPrefix(strings.ToLower(a.ContentType), "image/")
}

// emailBodyText prefers the plain body and falls back to stripping tags from
// the HTML body.
func emailBodyText(mail models.InboundEmail) string {
	if text := strings.TrimSpace(mail.BodyPlain); text != "" {
		return text
	}
	if mail.BodyHTML == "" {
		return ""
	}
	return strings.TrimSpace(htmlToText(mail.BodyHTML))
}

func htmlToText(raw string) string {
	doc, err := html.Parse(strings.NewReader(raw))
	if err != nil {
		return raw
	}
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && (n.Data == "p" || n.Data == "br" || n.Data == "div") {
			b.WriteString("\n")
		}
	}
	walk(doc)
	return b.String()
}
