package cartsync

import (
	"context"

	"github.com/sagargautam500/storefront/pkg/logger"
)

// Op names a cart mutation.
type Op string

const (
	OpAdd    Op = "add"
	OpUpdate Op = "update"
	OpRemove Op = "remove"
	OpClear  Op = "clear"
	OpMerge  Op = "merge"
)

// Level is the severity of a user-facing notification.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notification is the user-facing outcome of one mutation.
type Notification struct {
	Op      Op
	Level   Level
	Message string
}

// Notifier receives exactly one notification per mutation.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, n Notification)

func (fn NotifierFunc) Notify(ctx context.Context, n Notification) {
	fn(ctx, n)
}

// LogNotifier writes notifications to the structured logger.
type LogNotifier struct {
	Logger *logger.Logger
}

func (l LogNotifier) Notify(ctx context.Context, n Notification) {
	if l.Logger == nil {
		return
	}
	ctx = l.Logger.WithFields(ctx, map[string]any{
		"cart_op": string(n.Op),
		"level":   string(n.Level),
		"message": n.Message,
	})
	l.Logger.Info(ctx, "cart.notification")
}

const (
	msgAdded          = "Added to cart"
	msgUpdated        = "Cart updated"
	msgRemoved        = "Item removed from cart"
	msgCleared        = "Cart cleared"
	msgSynced         = "Your cart has been synced"
	msgPartialSync    = "Some items could not be synced to your cart"
	msgLineNotFound   = "Item not found in cart"
	msgAddFailed      = "Failed to add item to cart"
	msgUpdateFailed   = "Failed to update quantity"
	msgRemoveFailed   = "Failed to remove item"
	msgClearFailed    = "Failed to clear cart"
	msgInvalidRequest = "Invalid cart request"
)
