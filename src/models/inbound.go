package models

// WebhookAlert is the decoded JSON body of a TradingView-style alert. The
// transport layer has already verified content type and size; field-level
// validation happens in the webhook service.
type WebhookAlert struct {
	UserToken     string `json:"userToken"`
	AccountTag    string `json:"accountTag"`
	Symbol        string `json:"symbol"`
	Side          string `json:"side"` // BUY | SELL | LONG | SHORT
	Qty           string `json:"qty"`
	Price         string `json:"price"`
	Time          string `json:"time"`
	OrderID       string `json:"orderId,omitempty"`
	ScreenshotURL string `json:"screenshotUrl,omitempty"`
	AlertText     string `json:"alertText,omitempty"`
}

// EmailAttachment is one decoded attachment of an inbound email.
type EmailAttachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"data"`
}

// InboundEmail is an already-decoded inbound message. MIME parsing and
// transport verification happen upstream; routing and ingestion happen here.
type InboundEmail struct {
	Sender      string            `json:"sender"`
	Recipient   string            `json:"recipient"`
	Subject     string            `json:"subject"`
	BodyPlain   string            `json:"body_plain"`
	BodyHTML    string            `json:"body_html"`
	Attachments []EmailAttachment `json:"attachments"`
}
