package cartsync

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/multierr"

	pkgerrors "github.com/sagargautam500/storefront/pkg/errors"
	"github.com/sagargautam500/storefront/pkg/logger"
	"github.com/sagargautam500/storefront/pkg/metrics"
)

// Params wires an Engine. Remote and Logger are required.
type Params struct {
	Remote   Remote
	Guest    GuestStore
	Notifier Notifier
	Logger   *logger.Logger
	Metrics  *metrics.CartEngineMetrics
}

// Engine routes cart intents to the guest cart or the server cart and keeps
// the local cache optimistically consistent with whichever one is active.
//
// Mutations may be issued from several goroutines. The cache is guarded by a
// mutex that is never held across a remote call, so overlapping mutations of
// the same line resolve by completion order. Callers that need strict
// ordering must wait for each mutation before issuing the next.
type Engine struct {
	remote   Remote
	guest    GuestStore
	notifier Notifier
	logg     *logger.Logger
	metrics  *metrics.CartEngineMetrics

	mu       sync.RWMutex
	cache    cache
	identity string

	persistMu sync.Mutex
	inflight  atomic.Int32
}

// NewEngine builds an engine and restores the persisted guest cart. A guest
// store that fails to load is logged and treated as empty.
func NewEngine(ctx context.Context, p Params) (*Engine, error) {
	if p.Remote == nil {
		return nil, fmt.Errorf("cart remote required")
	}
	if p.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	notifier := p.Notifier
	if notifier == nil {
		notifier = LogNotifier{Logger: p.Logger}
	}
	e := &Engine{
		remote:   p.Remote,
		guest:    p.Guest,
		notifier: notifier,
		logg:     p.Logger,
		metrics:  p.Metrics,
	}
	if e.guest != nil {
		lines, err := e.guest.Load(ctx)
		if err != nil {
			e.logg.Error(ctx, "cartsync.guest_load_failed", err)
		} else {
			e.cache.restoreGuest(lines)
		}
	}
	return e, nil
}

// Mode reports which cart is active.
func (e *Engine) Mode() Mode {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.modeLocked()
}

// Identity returns the authenticated user id, if any.
func (e *Engine) Identity() (string, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.identity, e.identity != ""
}

// Busy reports whether any mutation is waiting on the remote store. It gates
// UI affordances only; cart correctness never depends on it.
func (e *Engine) Busy() bool {
	return e.inflight.Load() > 0
}

func (e *Engine) modeLocked() Mode {
	if e.identity != "" {
		return ModeAuthenticated
	}
	return ModeAnonymous
}

func (e *Engine) begin() func() {
	e.inflight.Add(1)
	return func() { e.inflight.Add(-1) }
}

// AddItemInput describes one add intent. Quantity defaults to 1 when zero.
// Snapshot is required whenever the add lands in the guest cart.
type AddItemInput struct {
	ProductID string
	Quantity  int
	Variant   *Variant
	Snapshot  *Snapshot
}

// AddItem adds quantity of a product/variant to the active cart. It reports
// whether the add took effect. The returned error is non-nil only for
// invalid input; remote failures surface as a notification and false.
func (e *Engine) AddItem(ctx context.Context, in AddItemInput) (bool, error) {
	productID := strings.TrimSpace(in.ProductID)
	if productID == "" {
		return false, e.rejectInput(ctx, OpAdd, "product id is required")
	}
	quantity := in.Quantity
	if quantity == 0 {
		quantity = 1
	}
	if quantity < 0 {
		return false, e.rejectInput(ctx, OpAdd, "quantity must be positive")
	}
	variant := NewVariantFrom(in.Variant)

	e.mu.RLock()
	identity := e.identity
	e.mu.RUnlock()

	if identity != "" {
		done := e.begin()
		err := e.timed(OpAdd, func() error {
			return e.remote.Add(ctx, addRequest(productID, quantity, variant))
		})
		done()
		switch {
		case err == nil:
			e.Refresh(ctx)
			e.succeed(ctx, OpAdd, ModeAuthenticated, msgAdded)
			return true, nil
		case isUnauthenticated(err):
			e.reclassify(ctx, identity, err)
		default:
			e.fail(ctx, OpAdd, ModeAuthenticated, userMessage(err, msgAddFailed), err)
			return false, nil
		}
	}

	if in.Snapshot == nil {
		return false, e.rejectInput(ctx, OpAdd, "product snapshot is required for guest cart")
	}
	e.mu.Lock()
	e.cache.addGuest(productID, quantity, variant, in.Snapshot)
	e.mu.Unlock()
	e.persistGuest(ctx)
	e.succeed(ctx, OpAdd, ModeAnonymous, msgAdded)
	return true, nil
}

// UpdateQuantity sets the quantity of a line. Quantities below 1 remove the
// line instead.
func (e *Engine) UpdateQuantity(ctx context.Context, id LineID, quantity int) bool {
	if quantity < 1 {
		return e.RemoveItem(ctx, id)
	}
	switch {
	case id.IsLocal():
		e.mu.Lock()
		found := e.cache.setGuestQuantity(id, quantity)
		e.mu.Unlock()
		if !found {
			e.fail(ctx, OpUpdate, ModeAnonymous, msgLineNotFound, nil)
			return false
		}
		e.persistGuest(ctx)
		e.succeed(ctx, OpUpdate, ModeAnonymous, msgUpdated)
		return true
	case id.IsRemote():
		return e.writeShadow(ctx, OpUpdate, id, msgUpdated, msgUpdateFailed,
			func(c *cache) bool { return c.setShadowQuantity(id, quantity) },
			func() error { return e.remote.UpdateQuantity(ctx, id.Remote(), quantity) },
		)
	default:
		e.fail(ctx, OpUpdate, e.Mode(), msgLineNotFound, nil)
		return false
	}
}

// RemoveItem deletes a line from whichever cart owns it.
func (e *Engine) RemoveItem(ctx context.Context, id LineID) bool {
	switch {
	case id.IsLocal():
		e.mu.Lock()
		found := e.cache.removeGuest(id)
		e.mu.Unlock()
		if !found {
			e.fail(ctx, OpRemove, ModeAnonymous, msgLineNotFound, nil)
			return false
		}
		e.persistGuest(ctx)
		e.succeed(ctx, OpRemove, ModeAnonymous, msgRemoved)
		return true
	case id.IsRemote():
		return e.writeShadow(ctx, OpRemove, id, msgRemoved, msgRemoveFailed,
			func(c *cache) bool { return c.removeShadow(id) },
			func() error { return e.remote.Remove(ctx, id.Remote()) },
		)
	default:
		e.fail(ctx, OpRemove, e.Mode(), msgLineNotFound, nil)
		return false
	}
}

// ClearCart empties the active cart.
func (e *Engine) ClearCart(ctx context.Context) bool {
	e.mu.Lock()
	if e.modeLocked() == ModeAnonymous {
		e.cache.clearGuest()
		e.mu.Unlock()
		e.persistGuest(ctx)
		e.succeed(ctx, OpClear, ModeAnonymous, msgCleared)
		return true
	}
	identity := e.identity
	token := e.cache.checkpoint()
	e.cache.clearShadow()
	e.mu.Unlock()

	done := e.begin()
	err := e.timed(OpClear, func() error { return e.remote.Clear(ctx) })
	done()
	if err != nil {
		e.undo(ctx, OpClear, identity, token, err)
		e.fail(ctx, OpClear, ModeAuthenticated, userMessage(err, msgClearFailed), err)
		return false
	}
	e.succeed(ctx, OpClear, ModeAuthenticated, msgCleared)
	return true
}

// writeShadow applies an optimistic edit to the server shadow, runs the
// remote call outside the lock and restores the checkpoint if it fails.
func (e *Engine) writeShadow(ctx context.Context, op Op, id LineID, okMsg, failMsg string, apply func(*cache) bool, call func() error) bool {
	e.mu.Lock()
	if e.modeLocked() != ModeAuthenticated {
		e.mu.Unlock()
		e.fail(ctx, op, ModeAnonymous, msgLineNotFound, nil)
		return false
	}
	identity := e.identity
	token := e.cache.checkpoint()
	found := apply(&e.cache)
	e.mu.Unlock()
	if !found {
		e.fail(ctx, op, ModeAuthenticated, msgLineNotFound, nil)
		return false
	}

	done := e.begin()
	err := e.timed(op, call)
	done()
	if err != nil {
		ctx = e.logg.WithField(ctx, "line_id", id.String())
		e.undo(ctx, op, identity, token, err)
		e.fail(ctx, op, ModeAuthenticated, userMessage(err, failMsg), err)
		return false
	}
	e.succeed(ctx, op, ModeAuthenticated, okMsg)
	return true
}

// undo restores a checkpoint unless the session changed while the call was
// in flight. An expired session drops the shadow instead.
func (e *Engine) undo(ctx context.Context, op Op, identity string, token undoToken, cause error) {
	if isUnauthenticated(cause) {
		e.reclassify(ctx, identity, cause)
		return
	}
	e.mu.Lock()
	if e.identity == identity {
		e.cache.rollback(token)
	}
	e.mu.Unlock()
	e.metrics.IncRollback(string(op))
}

// reclassify drops back to anonymous mode after the server rejected the
// session. The guest cart is left untouched.
func (e *Engine) reclassify(ctx context.Context, identity string, cause error) {
	e.mu.Lock()
	if e.identity == identity {
		e.identity = ""
		e.cache.clearShadow()
	}
	e.mu.Unlock()
	e.logg.Warn(e.logg.WithFields(ctx, map[string]any{
		"user_id": identity,
		"error":   cause.Error(),
	}), "cartsync.session_rejected")
}

// Refresh replaces the server shadow with a fresh fetch. Fetch failures
// yield an empty cart. It is a no-op in anonymous mode.
func (e *Engine) Refresh(ctx context.Context) {
	e.mu.RLock()
	identity := e.identity
	e.mu.RUnlock()
	if identity == "" {
		return
	}

	done := e.begin()
	var lines []Line
	err := e.timed("fetch", func() error {
		var fetchErr error
		lines, fetchErr = e.remote.Fetch(ctx)
		return fetchErr
	})
	done()
	if err != nil {
		e.logg.Warn(e.logg.WithField(ctx, "error", err.Error()), "cartsync.fetch_failed")
		lines = nil
	}

	e.mu.Lock()
	if e.identity == identity {
		e.cache.replaceShadow(remoteOnly(lines))
	}
	e.mu.Unlock()
}

// MergeResult summarizes one guest-to-server merge.
type MergeResult struct {
	Attempted int
	Synced    int
	// Dropped lists guest lines whose remote add failed. They are no longer
	// held by the engine.
	Dropped []Line
	// Kept lists lines returned to the guest cart because the session was
	// rejected before they were sent.
	Kept []Line
	Err  error
}

// MergeGuestIntoServer pushes every guest line to the server cart, one at a
// time, then refetches. The guest lines are claimed up front, so concurrent
// calls never send a line twice. Failed lines are dropped and reported. If
// the server rejects the session, lines already synced stay merged and the
// rest go back to the guest cart. An empty guest cart makes no remote calls.
func (e *Engine) MergeGuestIntoServer(ctx context.Context) MergeResult {
	e.mu.Lock()
	identity := e.identity
	if len(e.cache.guest) == 0 {
		e.mu.Unlock()
		return MergeResult{}
	}
	if identity == "" {
		e.mu.Unlock()
		return MergeResult{Err: pkgerrors.New(pkgerrors.CodeUnauthorized, "merge requires an authenticated session")}
	}
	pending := e.cache.takeGuest()
	e.mu.Unlock()

	done := e.begin()
	defer done()

	ctx = e.logg.WithFields(ctx, map[string]any{"user_id": identity, "guest_lines": len(pending)})
	result := MergeResult{}
	var errs error
	for i, line := range pending {
		result.Attempted++
		err := e.timed(OpMerge, func() error {
			return e.remote.Add(ctx, addRequest(line.ProductID, line.Quantity, line.Variant))
		})
		if err == nil {
			result.Synced++
			continue
		}
		if isUnauthenticated(err) {
			result.Kept = cloneLines(pending[i:])
			result.Err = multierr.Append(errs, err)
			return e.abortMerge(ctx, identity, result)
		}
		e.logg.Warn(e.logg.WithFields(ctx, map[string]any{
			"product_id": line.ProductID,
			"quantity":   line.Quantity,
			"error":      err.Error(),
		}), "cartsync.merge_line_failed")
		errs = multierr.Append(errs, fmt.Errorf("merge product %s: %w", line.ProductID, err))
		result.Dropped = append(result.Dropped, line)
	}
	result.Err = errs

	e.persistGuest(ctx)
	e.Refresh(ctx)

	e.metrics.AddMergeLines(metrics.OutcomeSuccess, result.Synced)
	e.metrics.AddMergeLines(metrics.OutcomeFailure, len(result.Dropped))
	if len(result.Dropped) > 0 {
		e.fail(ctx, OpMerge, ModeAuthenticated, msgPartialSync, errs)
		return result
	}
	e.succeed(ctx, OpMerge, ModeAuthenticated, msgSynced)
	return result
}

// abortMerge handles a session rejected mid-merge. Unsent lines return to
// the guest cart for the next login and the engine drops to anonymous mode.
func (e *Engine) abortMerge(ctx context.Context, identity string, result MergeResult) MergeResult {
	e.mu.Lock()
	e.cache.returnGuest(result.Kept)
	e.mu.Unlock()
	e.persistGuest(ctx)
	e.reclassify(ctx, identity, result.Err)

	e.metrics.AddMergeLines(metrics.OutcomeSuccess, result.Synced)
	e.metrics.AddMergeLines(metrics.OutcomeFailure, len(result.Dropped))
	e.fail(ctx, OpMerge, ModeAnonymous, msgPartialSync, result.Err)
	return result
}

// Login switches to authenticated mode for userID and merges any guest
// cart exactly once. Logging in again as the same user is a no-op.
func (e *Engine) Login(ctx context.Context, userID string) MergeResult {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return MergeResult{Err: pkgerrors.New(pkgerrors.CodeValidation, "user id is required")}
	}
	e.mu.Lock()
	if e.identity == userID {
		e.mu.Unlock()
		return MergeResult{}
	}
	e.identity = userID
	e.cache.clearShadow()
	hasGuest := len(e.cache.guest) > 0
	e.mu.Unlock()

	e.logg.Info(e.logg.WithUserID(ctx, userID), "cartsync.login")
	if hasGuest {
		return e.MergeGuestIntoServer(ctx)
	}
	e.Refresh(ctx)
	return MergeResult{}
}

// Logout returns to anonymous mode and discards the server shadow. Any
// unmerged guest cart is kept.
func (e *Engine) Logout(ctx context.Context) {
	e.mu.Lock()
	userID := e.identity
	e.identity = ""
	e.cache.clearShadow()
	e.mu.Unlock()
	if userID != "" {
		e.logg.Info(e.logg.WithUserID(ctx, userID), "cartsync.logout")
	}
}

func (e *Engine) persistGuest(ctx context.Context) {
	if e.guest == nil {
		return
	}
	e.persistMu.Lock()
	defer e.persistMu.Unlock()

	e.mu.RLock()
	lines := cloneLines(e.cache.guest)
	e.mu.RUnlock()
	if err := e.guest.Save(ctx, lines); err != nil {
		e.logg.Warn(e.logg.WithField(ctx, "error", err.Error()), "cartsync.guest_persist_failed")
	}
}

func (e *Engine) timed(op Op, fn func() error) error {
	started := time.Now()
	err := fn()
	e.metrics.ObserveRemote(string(op), time.Since(started))
	return err
}

func (e *Engine) succeed(ctx context.Context, op Op, mode Mode, msg string) {
	e.metrics.IncMutation(string(op), mode.String(), metrics.OutcomeSuccess)
	e.notifier.Notify(ctx, Notification{Op: op, Level: LevelSuccess, Message: msg})
}

func (e *Engine) fail(ctx context.Context, op Op, mode Mode, msg string, cause error) {
	e.metrics.IncMutation(string(op), mode.String(), metrics.OutcomeFailure)
	if cause != nil {
		e.logg.Warn(e.logg.WithFields(ctx, map[string]any{
			"cart_op": string(op),
			"error":   cause.Error(),
		}), "cartsync.mutation_failed")
	}
	e.notifier.Notify(ctx, Notification{Op: op, Level: LevelError, Message: msg})
}

func (e *Engine) rejectInput(ctx context.Context, op Op, reason string) error {
	err := pkgerrors.New(pkgerrors.CodeValidation, reason)
	e.fail(ctx, op, e.Mode(), msgInvalidRequest, nil)
	return err
}

func addRequest(productID string, quantity int, variant *Variant) AddLineRequest {
	req := AddLineRequest{ProductID: productID, Quantity: quantity}
	if variant != nil {
		req.Size = variant.Size
		req.Color = variant.Color
	}
	return req
}

// remoteOnly drops fetched lines that do not carry a server id.
func remoteOnly(lines []Line) []Line {
	out := make([]Line, 0, len(lines))
	for _, line := range lines {
		if line.ID.IsRemote() {
			out = append(out, line)
		}
	}
	return out
}
