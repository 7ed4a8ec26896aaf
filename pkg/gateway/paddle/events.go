package paddle

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrymomot/biolink/pkg/gateway"
)

type notification struct {
	EventID    string           `json:"event_id"`
	EventType  string           `json:"event_type"`
	OccurredAt string           `json:"occurred_at"`
	Data       *notificationObj `json:"data"`
}

type notificationObj struct {
	ID            string         `json:"id"`
	Status        string         `json:"status"`
	Action        string         `json:"action"`
	TransactionID string         `json:"transaction_id"`
	CustomData    map[string]any `json:"custom_data"`
	Details       *struct {
		Totals *struct {
			Total string `json:"total"`
		} `json:"totals"`
	} `json:"details"`
}

// ParseEvent decodes transaction.* and refund adjustment.* notifications.
func (g *Gateway) ParseEvent(body []byte) (gateway.Event, error) {
	var n notification
	if err := json.Unmarshal(body, &n); err != nil {
		return gateway.Event{}, fmt.Errorf("%w: %w", gateway.ErrMalformedEvent, err)
	}
	if n.EventType == "" || n.Data == nil {
		return gateway.Event{}, fmt.Errorf("%w: missing event_type or data", gateway.ErrMalformedEvent)
	}

	ev := gateway.Event{
		ID:        n.EventID,
		Kind:      n.EventType,
		RawStatus: n.Data.Status,
	}
	if ref, ok := n.Data.CustomData["payment_id"].(string); ok {
		ev.Reference = ref
	}
	if t, err := time.Parse(time.RFC3339Nano, n.OccurredAt); err == nil {
		ev.OccurredAt = t
	}

	switch {
	case strings.HasPrefix(n.EventType, "adjustment."):
		ev.TransactionID = n.Data.TransactionID
		ev.Status = gateway.StatusUnknown
		if n.Data.Action == "refund" && n.Data.Status == "approved" {
			ev.Status = gateway.StatusRefunded
		}
	case strings.HasPrefix(n.EventType, "transaction."):
		ev.TransactionID = n.Data.ID
		ev.Status = MapEvent(n.EventType, n.Data.Status)
		if n.Data.Details != nil && n.Data.Details.Totals != nil && n.Data.Details.Totals.Total != "" {
			total, err := strconv.ParseInt(n.Data.Details.Totals.Total, 10, 64)
			if err != nil {
				return gateway.Event{}, fmt.Errorf("%w: details.totals.total: %w", gateway.ErrMalformedEvent, err)
			}
			ev.Amount = &total
		}
	default:
		return gateway.Event{}, fmt.Errorf("%w: unsupported event type %q", gateway.ErrMalformedEvent, n.EventType)
	}

	if ev.TransactionID == "" || ev.RawStatus == "" {
		return gateway.Event{}, fmt.Errorf("%w: missing transaction id or status", gateway.ErrMalformedEvent)
	}
	if ev.ID == "" {
		sum := sha256.Sum256([]byte(n.EventType + "|" + ev.TransactionID + "|" + ev.RawStatus))
		ev.ID = "derived_" + hex.EncodeToString(sum[:12])
	}
	return ev, nil
}

// MapEvent normalizes a transaction notification.
func MapEvent(eventType, status string) gateway.Status {
	switch eventType {
	case "transaction.paid", "transaction.completed":
		return gateway.StatusPaid
	case "transaction.payment_failed":
		return gateway.StatusFailed
	case "transaction.canceled":
		return gateway.StatusCanceled
	}
	return MapTransactionStatus(status)
}

// MapTransactionStatus normalizes a Paddle transaction status.
func MapTransactionStatus(status string) gateway.Status {
	switch status {
	case "draft", "ready", "billed":
		return gateway.StatusPending
	case "paid", "completed":
		return gateway.StatusPaid
	case "canceled":
		return gateway.StatusCanceled
	case "past_due":
		return gateway.StatusFailed
	}
	return gateway.StatusUnknown
}
