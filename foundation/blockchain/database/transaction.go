package database

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ardanlabs/servicechain/foundation/blockchain/signature"
)

// =============================================================================

// SignedFields represents the part of a transaction covered by the signature.
// The field order is the canonical encoding and must not change.
type SignedFields struct {
	From   string          `json:"from"`
	To     string          `json:"to"`
	Data   json.RawMessage `json:"data"`
	Amount float64         `json:"amount"`
}

// Tx is the transactional information between two principals. Principals are
// opaque identifiers and the data is the domain event being recorded.
type Tx struct {
	ID        string          `json:"id"`        // Unique id for the transaction.
	From      string          `json:"from"`      // Principal performing the action.
	To        string          `json:"to"`        // Principal or contract address receiving the action.
	Data      json.RawMessage `json:"data"`      // Domain event payload.
	Amount    float64         `json:"amount"`    // Monetary value, zero for non monetary actions.
	TimeStamp time.Time       `json:"timestamp"` // Time the transaction was created.
	Signature string          `json:"signature"` // Keyed hash over the signed fields.
}

// NewTx constructs and signs a new transaction.
func NewTx(signer *signature.Signer, id string, from string, to string, data any, amount float64, now time.Time) (Tx, error) {
	if amount < 0 {
		return Tx{}, fmt.Errorf("transaction amount must not be negative, got %v", amount)
	}

	raw, err := toRawMessage(data)
	if err != nil {
		return Tx{}, fmt.Errorf("encoding transaction data: %w", err)
	}

	tx := Tx{
		ID:        id,
		From:      from,
		To:        to,
		Data:      raw,
		Amount:    amount,
		TimeStamp: now,
	}

	sig, err := signer.Sign(tx.SignedFields())
	if err != nil {
		return Tx{}, fmt.Errorf("signing transaction: %w", err)
	}
	tx.Signature = sig

	return tx, nil
}

// SignedFields returns the canonical signing input of the transaction.
func (tx Tx) SignedFields() SignedFields {
	return SignedFields{
		From:   tx.From,
		To:     tx.To,
		Data:   tx.Data,
		Amount: tx.Amount,
	}
}

// VerifySignature recomputes the keyed hash of the transaction and
// compares it against the stored signature.
func (tx Tx) VerifySignature(signer *signature.Signer) error {
	ok, err := signer.Verify(tx.SignedFields(), tx.Signature)
	if err != nil {
		return err
	}

	if !ok {
		return fmt.Errorf("transaction %s: %w", tx.ID, ErrInvalidSignature)
	}

	return nil
}

// DataMap decodes the payload into a generic map for inspection. Payloads
// that are not JSON objects return a nil map.
func (tx Tx) DataMap() map[string]any {
	var m map[string]any
	if err := json.Unmarshal(tx.Data, &m); err != nil {
		return nil
	}

	return m
}

// String implements the fmt.Stringer interface for logging.
func (tx Tx) String() string {
	return fmt.Sprintf("%s:%s->%s", tx.ID, tx.From, tx.To)
}

// ErrInvalidSignature is returned when a transaction signature doesn't match
// its content.
var ErrInvalidSignature = errors.New("invalid transaction signature")

// =============================================================================

// toRawMessage marshals the data unless it's already encoded.
func toRawMessage(data any) (json.RawMessage, error) {
	switch v := data.(type) {
	case nil:
		return json.RawMessage("null"), nil
	case json.RawMessage:
		if !json.Valid(v) {
			return nil, errors.New("invalid json payload")
		}
		return compact(v)
	}

	b, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return json.RawMessage(b), nil
}

// compact re-encodes raw json the same way json.Marshal does so the stored
// bytes match the bytes that get hashed.
func compact(raw json.RawMessage) (json.RawMessage, error) {
	b, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}

	return json.RawMessage(b), nil
}
