package models

// MappingSpec associates each canonical trade field with a column name in the
// source file. Column names are matched case-sensitively against the header
// row. Empty entries mean the source does not carry that field.
type MappingSpec struct {
	Symbol     string `json:"symbol" yaml:"symbol"`
	Side       string `json:"side" yaml:"side"`
	Quantity   string `json:"quantity" yaml:"quantity"`
	EntryPrice string `json:"entry_price" yaml:"entry_price"`
	ExitPrice  string `json:"exit_price" yaml:"exit_price"`
	EntryTime  string `json:"entry_time" yaml:"entry_time"`
	ExitTime   string `json:"exit_time" yaml:"exit_time"`
	Fees       string `json:"fees" yaml:"fees"`
	PnL        string `json:"pnl" yaml:"pnl"`
	OrderID    string `json:"order_id" yaml:"order_id"`
}

// MappingProfile is a named, reusable MappingSpec owned by a user, saved after
// a manual mapping of an undetected source.
type MappingProfile struct {
	ID      int64       `json:"id,omitempty"`
	UserID  int64       `json:"user_id"`
	Name    string      `json:"name"`
	Source  string      `json:"source"`
	Mapping MappingSpec `json:"mapping"`
}
