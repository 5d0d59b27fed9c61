package model

import "time"

// Purchase is one accepted payment for a document, keyed by its transaction id.
// Rows are created once and never updated.
type Purchase struct {
	ID            string    `json:"id"`
	BuyerAddress  string    `json:"address_buyer"`
	DocumentID    string    `json:"doc_id"`
	TransactionID string    `json:"transaction_id"`
	CreatedAt     time.Time `json:"created_at"`

	// Document is populated only by listing queries that join the document row.
	Document *Document `json:"document,omitempty"`
}
