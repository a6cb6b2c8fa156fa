// Package events stores notification requests for the external push
// dispatcher. Rows are written in the same transaction as the state change
// they describe, so a rolled-back accrual never notifies anyone.
package events

// Notification event types consumed by the push dispatcher.
const (
	EventBalanceChanged = "wallet.balance_changed"
	EventStampEarned    = "wallet.stamp_earned"
	EventVoucherIssued  = "voucher.issued"
)

// BalanceChangedPayload describes a points balance movement.
type BalanceChangedPayload struct {
	UserID        string `json:"user_id"`
	Delta         int64  `json:"delta"`
	LedgerEntryID string `json:"ledger_entry_id"`
	Reason        string `json:"reason,omitempty"`
}

// ToMap converts the payload into an outbox-friendly map.
func (p BalanceChangedPayload) ToMap() map[string]any {
	payload := map[string]any{
		"user_id":         p.UserID,
		"delta":           p.Delta,
		"ledger_entry_id": p.LedgerEntryID,
	}
	if p.Reason != "" {
		payload["reason"] = p.Reason
	}
	return payload
}

// VoucherIssuedPayload describes a freshly issued voucher.
type VoucherIssuedPayload struct {
	UserID    string `json:"user_id"`
	VoucherID string `json:"voucher_id"`
	Reward    string `json:"reward"`
}

// ToMap converts the payload into an outbox-friendly map.
func (p VoucherIssuedPayload) ToMap() map[string]any {
	return map[string]any{
		"user_id":    p.UserID,
		"voucher_id": p.VoucherID,
		"reward":     p.Reward,
	}
}
