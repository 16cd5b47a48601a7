package separation

import (
	"time"

	"github.com/zombor/cargo-match/internal/reconcile"
)

// Run is a stored reconciliation over one snapshot of Ready items
type Run struct {
	ID          string                `json:"id"`
	Destination reconcile.Destination `json:"destination"`
	Result      reconcile.Result      `json:"result"`
	CreatedAt   time.Time             `json:"created_at"`
}
