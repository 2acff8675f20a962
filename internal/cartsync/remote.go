package cartsync

import (
	"context"

	pkgerrors "github.com/sagargautam500/storefront/pkg/errors"
)

// AddLineRequest is the payload of a remote add. Size and Color are empty
// when the line has no variant.
type AddLineRequest struct {
	ProductID string
	Quantity  int
	Size      string
	Color     string
}

// Remote is the cart persistence service as seen by the engine. Ownership
// is derived from the session behind the implementation; the engine never
// sends a user id. Implementations return *pkgerrors.Error values:
// CodeUnauthorized for a missing or expired session, CodeDependency for
// transport failures, and the service's own code for rejections.
type Remote interface {
	Fetch(ctx context.Context) ([]Line, error)
	Add(ctx context.Context, req AddLineRequest) error
	UpdateQuantity(ctx context.Context, lineID string, quantity int) error
	Remove(ctx context.Context, lineID string) error
	Clear(ctx context.Context) error
}

// GuestStore persists the guest cart across restarts. The server shadow is
// never written here.
type GuestStore interface {
	Load(ctx context.Context) ([]Line, error)
	Save(ctx context.Context, lines []Line) error
}

func isUnauthenticated(err error) bool {
	return pkgerrors.HasCode(err, pkgerrors.CodeUnauthorized)
}

// userMessage picks the remote-provided message for rejections and the
// fallback for transport or internal failures.
func userMessage(err error, fallback string) string {
	typed := pkgerrors.As(err)
	if typed == nil {
		return fallback
	}
	switch typed.Code() {
	case pkgerrors.CodeInternal, pkgerrors.CodeDependency:
		return fallback
	}
	if msg := typed.Message(); msg != "" {
		return msg
	}
	return fallback
}
