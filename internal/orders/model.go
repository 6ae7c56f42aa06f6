package orders

import (
	"time"

	"github.com/aumarche/aumarche/internal/apperr"
)

// Status is the fulfilment state of an order.
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

var (
	// ErrNotFound is returned when no order matches.
	ErrNotFound = apperr.New(apperr.KindNotFound, "Commande introuvable")
	// ErrInvalidAmount rejects negative amounts.
	ErrInvalidAmount = apperr.New(apperr.KindValidation, "Le montant doit être positif")
	// ErrInvalidTransition rejects status changes out of a final state.
	ErrInvalidTransition = apperr.New(apperr.KindValidation, "Transition de statut invalide")
)

// Order is a purchase in FCFA. Amount is never negative.
type Order struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Amount    int64     `json:"amount"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}
