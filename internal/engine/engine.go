package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"liftbay/internal/config"
	"liftbay/internal/domain"
	"liftbay/internal/engine/auth"
	"liftbay/internal/events"
	"liftbay/internal/repo"
)

// Engine executes every state-mutating operation as a single transaction
// covering the repair write, the paired elevator or stock write, and the
// audit event. The role gate runs before anything is loaded.
type Engine struct {
	DB     *sql.DB
	Repo   repo.Repo
	Events events.Writer
	Config *config.Config
	Now    func() time.Time
}

func New(db *sql.DB, cfg *config.Config) Engine {
	return Engine{
		DB:     db,
		Repo:   repo.Repo{DB: db},
		Events: events.Writer{DB: db},
		Config: cfg,
		Now:    time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) nowStr() string {
	return e.now().UTC().Format(time.RFC3339)
}

func newID() string {
	return uuid.New().String()
}

// ensureRepairTransition is the transition table. Reschedule re-enters
// Pending from Pending or Approved; everything else moves strictly forward.
func ensureRepairTransition(oldStatus, newStatus string) error {
	switch oldStatus {
	case domain.RepairPending:
		if newStatus == domain.RepairApproved || newStatus == domain.RepairCancelled ||
			newStatus == domain.RepairInProgress || newStatus == domain.RepairPending {
			return nil
		}
	case domain.RepairApproved:
		if newStatus == domain.RepairInProgress || newStatus == domain.RepairPending {
			return nil
		}
	case domain.RepairInProgress:
		if newStatus == domain.RepairCompleted {
			return nil
		}
	}
	return InvalidTransitionError{From: oldStatus, To: newStatus}
}

// --- repairs ---

type ScheduleOptions struct {
	ElevatorID  string
	Description string
	ScheduledAt string
}

// ScheduleRepair creates a Pending repair and acquires its elevator in one
// transaction. Two concurrent calls against the same elevator race on the
// availability compare-and-swap; exactly one wins.
func (e Engine) ScheduleRepair(ctx context.Context, opts ScheduleOptions, actor domain.Actor) (domain.Repair, error) {
	if err := auth.Require(actor, domain.RoleClient); err != nil {
		return domain.Repair{}, err
	}
	if opts.ElevatorID == "" {
		return domain.Repair{}, errors.New("elevator is required")
	}
	if opts.Description == "" {
		return domain.Repair{}, errors.New("description is required")
	}
	if opts.ScheduledAt == "" {
		return domain.Repair{}, errors.New("scheduled_at is required")
	}
	if _, err := time.Parse(time.RFC3339, opts.ScheduledAt); err != nil {
		return domain.Repair{}, fmt.Errorf("invalid scheduled_at: %w", err)
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Repair{}, err
	}
	defer tx.Rollback()

	if _, err := e.Repo.GetElevatorTx(ctx, tx, opts.ElevatorID); err != nil {
		return domain.Repair{}, fmt.Errorf("elevator %s: %w", opts.ElevatorID, err)
	}
	acquired, err := e.Repo.AcquireElevatorTx(ctx, tx, opts.ElevatorID)
	if err != nil {
		return domain.Repair{}, err
	}
	if !acquired {
		return domain.Repair{}, ErrElevatorUnavailable
	}

	now := e.nowStr()
	// First booking also enters the client into the directory.
	if err := e.Repo.EnsureActorTx(ctx, tx, domain.Actor{
		ID:        actor.ID,
		Name:      actor.Name,
		Role:      domain.RoleClient,
		CreatedAt: now,
	}); err != nil {
		return domain.Repair{}, err
	}
	rep := domain.Repair{
		ID:          newID(),
		ClientID:    actor.ID,
		ElevatorID:  opts.ElevatorID,
		Description: opts.Description,
		ScheduledAt: opts.ScheduledAt,
		Status:      domain.RepairPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := e.Repo.InsertRepairTx(ctx, tx, rep); err != nil {
		return domain.Repair{}, fmt.Errorf("insert repair: %w", err)
	}
	if err := e.Events.Append(ctx, tx, "repair.scheduled", "repair", rep.ID, actor.ID, events.EventPayload{
		"elevator_id":  rep.ElevatorID,
		"scheduled_at": rep.ScheduledAt,
	}); err != nil {
		return domain.Repair{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Repair{}, err
	}
	return rep, nil
}

// ApproveRepair moves a Pending repair to Approved.
func (e Engine) ApproveRepair(ctx context.Context, repairID string, actor domain.Actor) (domain.Repair, error) {
	if err := auth.Require(actor, domain.RoleReceptionist); err != nil {
		return domain.Repair{}, err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Repair{}, err
	}
	defer tx.Rollback()

	rep, err := e.Repo.GetRepairTx(ctx, tx, repairID)
	if err != nil {
		return rep, err
	}
	if rep.Status != domain.RepairPending {
		return rep, InvalidTransitionError{From: rep.Status, To: domain.RepairApproved}
	}
	rep.Status = domain.RepairApproved
	rep.UpdatedAt = e.nowStr()
	if err := e.Repo.UpdateRepairTx(ctx, tx, rep); err != nil {
		return rep, err
	}
	if err := e.Events.Append(ctx, tx, "repair.approved", "repair", rep.ID, actor.ID, nil); err != nil {
		return rep, err
	}
	if err := tx.Commit(); err != nil {
		return rep, err
	}
	return rep, nil
}

type RescheduleOptions struct {
	RepairID    string
	ElevatorID  string
	ScheduledAt string
}

// RescheduleRepair swaps the repair onto a new elevator and re-enters
// Pending. Release of the old elevator and acquisition of the new one run
// in one transaction: if the new elevator cannot be acquired the whole
// transaction aborts, restoring the old elevator's prior availability
// without re-deriving it.
func (e Engine) RescheduleRepair(ctx context.Context, opts RescheduleOptions, actor domain.Actor) (domain.Repair, error) {
	if err := auth.Require(actor, domain.RoleReceptionist); err != nil {
		return domain.Repair{}, err
	}
	if opts.ElevatorID == "" {
		return domain.Repair{}, errors.New("elevator is required")
	}
	if opts.ScheduledAt == "" {
		return domain.Repair{}, errors.New("scheduled_at is required")
	}
	if _, err := time.Parse(time.RFC3339, opts.ScheduledAt); err != nil {
		return domain.Repair{}, fmt.Errorf("invalid scheduled_at: %w", err)
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Repair{}, err
	}
	defer tx.Rollback()

	rep, err := e.Repo.GetRepairTx(ctx, tx, opts.RepairID)
	if err != nil {
		return rep, err
	}
	if rep.Status != domain.RepairPending && rep.Status != domain.RepairApproved {
		return rep, InvalidTransitionError{From: rep.Status, To: domain.RepairPending}
	}
	if _, err := e.Repo.GetElevatorTx(ctx, tx, opts.ElevatorID); err != nil {
		return rep, fmt.Errorf("elevator %s: %w", opts.ElevatorID, err)
	}

	oldElevatorID := rep.ElevatorID
	if err := e.Repo.ReleaseElevatorTx(ctx, tx, oldElevatorID); err != nil {
		return rep, err
	}
	acquired, err := e.Repo.AcquireElevatorTx(ctx, tx, opts.ElevatorID)
	if err != nil {
		return rep, err
	}
	if !acquired {
		return rep, ErrElevatorUnavailable
	}

	rep.ElevatorID = opts.ElevatorID
	rep.ScheduledAt = opts.ScheduledAt
	rep.Status = domain.RepairPending
	rep.UpdatedAt = e.nowStr()
	if err := e.Repo.UpdateRepairTx(ctx, tx, rep); err != nil {
		return rep, err
	}
	if err := e.Events.Append(ctx, tx, "repair.rescheduled", "repair", rep.ID, actor.ID, events.EventPayload{
		"from_elevator": oldElevatorID,
		"to_elevator":   rep.ElevatorID,
		"scheduled_at":  rep.ScheduledAt,
	}); err != nil {
		return rep, err
	}
	if err := tx.Commit(); err != nil {
		return rep, err
	}
	return rep, nil
}

// AssignMechanic binds a mechanic to a non-terminal repair. A Pending
// repair is bumped to Approved; later statuses keep their status.
func (e Engine) AssignMechanic(ctx context.Context, repairID, mechanicID string, actor domain.Actor) (domain.Repair, error) {
	if err := auth.Require(actor, domain.RoleReceptionist); err != nil {
		return domain.Repair{}, err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Repair{}, err
	}
	defer tx.Rollback()

	mech, err := e.Repo.GetActorTx(ctx, tx, mechanicID)
	if err != nil {
		return domain.Repair{}, fmt.Errorf("mechanic %s: %w", mechanicID, err)
	}
	if mech.Role != domain.RoleMechanic {
		return domain.Repair{}, fmt.Errorf("mechanic %s: %w", mechanicID, repo.ErrNotFound)
	}
	rep, err := e.Repo.GetRepairTx(ctx, tx, repairID)
	if err != nil {
		return rep, err
	}
	if domain.TerminalRepairStatus(rep.Status) {
		return rep, InvalidTransitionError{From: rep.Status, To: rep.Status}
	}
	rep.MechanicID = &mech.ID
	if rep.Status == domain.RepairPending {
		rep.Status = domain.RepairApproved
	}
	rep.UpdatedAt = e.nowStr()
	if err := e.Repo.UpdateRepairTx(ctx, tx, rep); err != nil {
		return rep, err
	}
	if err := e.Events.Append(ctx, tx, "repair.assigned", "repair", rep.ID, actor.ID, events.EventPayload{
		"mechanic_id": mech.ID,
	}); err != nil {
		return rep, err
	}
	if err := tx.Commit(); err != nil {
		return rep, err
	}
	return rep, nil
}

// ClaimRepair lets a mechanic take an unassigned repair, or start one
// already assigned to them. A repair bound to another mechanic cannot be
// claimed away.
func (e Engine) ClaimRepair(ctx context.Context, repairID string, actor domain.Actor) (domain.Repair, error) {
	if err := auth.Require(actor, domain.RoleMechanic); err != nil {
		return domain.Repair{}, err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Repair{}, err
	}
	defer tx.Rollback()

	rep, err := e.Repo.GetRepairTx(ctx, tx, repairID)
	if err != nil {
		return rep, err
	}
	if rep.MechanicID != nil && *rep.MechanicID != actor.ID {
		return rep, AssigneeMismatchError{}
	}
	if err := ensureRepairTransition(rep.Status, domain.RepairInProgress); err != nil {
		return rep, err
	}
	rep.MechanicID = &actor.ID
	rep.Status = domain.RepairInProgress
	rep.UpdatedAt = e.nowStr()
	if err := e.Repo.UpdateRepairTx(ctx, tx, rep); err != nil {
		return rep, err
	}
	if err := e.Events.Append(ctx, tx, "repair.claimed", "repair", rep.ID, actor.ID, nil); err != nil {
		return rep, err
	}
	if err := tx.Commit(); err != nil {
		return rep, err
	}
	return rep, nil
}

// RecordUsage appends a free-text parts note to the repair. Quantities are
// not deducted from stock; the note is the only record of usage.
func (e Engine) RecordUsage(ctx context.Context, repairID, note string, actor domain.Actor) (domain.Repair, error) {
	if err := auth.Require(actor, domain.RoleMechanic); err != nil {
		return domain.Repair{}, err
	}
	if note == "" {
		return domain.Repair{}, errors.New("note is required")
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Repair{}, err
	}
	defer tx.Rollback()

	rep, err := e.Repo.GetRepairTx(ctx, tx, repairID)
	if err != nil {
		return rep, err
	}
	if rep.MechanicID == nil || *rep.MechanicID != actor.ID {
		return rep, AssigneeMismatchError{}
	}
	if rep.Notes != "" {
		rep.Notes += "\n"
	}
	rep.Notes += note
	rep.UpdatedAt = e.nowStr()
	if err := e.Repo.UpdateRepairTx(ctx, tx, rep); err != nil {
		return rep, err
	}
	if err := e.Events.Append(ctx, tx, "repair.usage_recorded", "repair", rep.ID, actor.ID, events.EventPayload{
		"note": note,
	}); err != nil {
		return rep, err
	}
	if err := tx.Commit(); err != nil {
		return rep, err
	}
	return rep, nil
}

// CompleteRepair finishes an InProgress repair, finalizes the cost and
// frees the elevator in the same transaction.
func (e Engine) CompleteRepair(ctx context.Context, repairID string, finalCost *float64, actor domain.Actor) (domain.Repair, error) {
	if err := auth.Require(actor, domain.RoleMechanic); err != nil {
		return domain.Repair{}, err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Repair{}, err
	}
	defer tx.Rollback()

	rep, err := e.Repo.GetRepairTx(ctx, tx, repairID)
	if err != nil {
		return rep, err
	}
	if rep.MechanicID == nil || *rep.MechanicID != actor.ID {
		return rep, AssigneeMismatchError{}
	}
	if err := ensureRepairTransition(rep.Status, domain.RepairCompleted); err != nil {
		return rep, err
	}
	if finalCost != nil {
		rep.Cost = finalCost
	}
	if rep.Cost == nil {
		c := e.Config.DefaultCost()
		rep.Cost = &c
	}
	now := e.nowStr()
	rep.Status = domain.RepairCompleted
	rep.UpdatedAt = now
	rep.CompletedAt = &now
	if err := e.Repo.UpdateRepairTx(ctx, tx, rep); err != nil {
		return rep, err
	}
	if err := e.Repo.ReleaseElevatorTx(ctx, tx, rep.ElevatorID); err != nil {
		return rep, err
	}
	if err := e.Events.Append(ctx, tx, "repair.completed", "repair", rep.ID, actor.ID, events.EventPayload{
		"cost":        *rep.Cost,
		"elevator_id": rep.ElevatorID,
	}); err != nil {
		return rep, err
	}
	if err := tx.Commit(); err != nil {
		return rep, err
	}
	return rep, nil
}

// CancelRepair cancels a Pending repair and frees its elevator.
func (e Engine) CancelRepair(ctx context.Context, repairID string, actor domain.Actor) (domain.Repair, error) {
	if err := auth.Require(actor, domain.RoleReceptionist, domain.RoleManager); err != nil {
		return domain.Repair{}, err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Repair{}, err
	}
	defer tx.Rollback()

	rep, err := e.Repo.GetRepairTx(ctx, tx, repairID)
	if err != nil {
		return rep, err
	}
	if rep.Status != domain.RepairPending {
		return rep, InvalidTransitionError{From: rep.Status, To: domain.RepairCancelled}
	}
	rep.Status = domain.RepairCancelled
	rep.UpdatedAt = e.nowStr()
	if err := e.Repo.UpdateRepairTx(ctx, tx, rep); err != nil {
		return rep, err
	}
	if err := e.Repo.ReleaseElevatorTx(ctx, tx, rep.ElevatorID); err != nil {
		return rep, err
	}
	if err := e.Events.Append(ctx, tx, "repair.cancelled", "repair", rep.ID, actor.ID, events.EventPayload{
		"elevator_id": rep.ElevatorID,
	}); err != nil {
		return rep, err
	}
	if err := tx.Commit(); err != nil {
		return rep, err
	}
	return rep, nil
}

// --- elevators ---

// AddElevator provisions a new bay.
func (e Engine) AddElevator(ctx context.Context, category string, actor domain.Actor) (domain.Elevator, error) {
	if err := auth.Require(actor, domain.RoleManager); err != nil {
		return domain.Elevator{}, err
	}
	if category == "" {
		return domain.Elevator{}, errors.New("category is required")
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Elevator{}, err
	}
	defer tx.Rollback()

	el := domain.Elevator{
		ID:        newID(),
		Category:  category,
		Status:    domain.ElevatorAvailable,
		CreatedAt: e.nowStr(),
	}
	if err := e.Repo.InsertElevator(ctx, tx, el); err != nil {
		return domain.Elevator{}, fmt.Errorf("insert elevator: %w", err)
	}
	if err := e.Events.Append(ctx, tx, "elevator.added", "elevator", el.ID, actor.ID, events.EventPayload{
		"category": el.Category,
	}); err != nil {
		return domain.Elevator{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Elevator{}, err
	}
	return el, nil
}

// BlockElevator puts an elevator into Maintenance. An Occupied elevator
// cannot be blocked; the occupying repair must be resolved or cancelled
// first so it is never silently orphaned.
func (e Engine) BlockElevator(ctx context.Context, elevatorID string, actor domain.Actor) (domain.Elevator, error) {
	if err := auth.Require(actor, domain.RoleManager); err != nil {
		return domain.Elevator{}, err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Elevator{}, err
	}
	defer tx.Rollback()

	el, err := e.Repo.GetElevatorTx(ctx, tx, elevatorID)
	if err != nil {
		return el, err
	}
	if el.Status == domain.ElevatorOccupied {
		return el, ErrElevatorUnavailable
	}
	if err := e.Repo.SetElevatorStatusTx(ctx, tx, elevatorID, domain.ElevatorMaintenance); err != nil {
		return el, err
	}
	el.Status = domain.ElevatorMaintenance
	if err := e.Events.Append(ctx, tx, "elevator.blocked", "elevator", el.ID, actor.ID, nil); err != nil {
		return el, err
	}
	if err := tx.Commit(); err != nil {
		return el, err
	}
	return el, nil
}

// UnblockElevator sets an elevator back to Available unconditionally.
// Calling it on an already available elevator is a no-op.
func (e Engine) UnblockElevator(ctx context.Context, elevatorID string, actor domain.Actor) (domain.Elevator, error) {
	if err := auth.Require(actor, domain.RoleManager); err != nil {
		return domain.Elevator{}, err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Elevator{}, err
	}
	defer tx.Rollback()

	el, err := e.Repo.GetElevatorTx(ctx, tx, elevatorID)
	if err != nil {
		return el, err
	}
	if err := e.Repo.SetElevatorStatusTx(ctx, tx, elevatorID, domain.ElevatorAvailable); err != nil {
		return el, err
	}
	el.Status = domain.ElevatorAvailable
	if err := e.Events.Append(ctx, tx, "elevator.unblocked", "elevator", el.ID, actor.ID, nil); err != nil {
		return el, err
	}
	if err := tx.Commit(); err != nil {
		return el, err
	}
	return el, nil
}

// --- stock ---

type ConsumableOptions struct {
	Name      string
	Quantity  int
	UnitPrice float64
	Threshold int
}

func (e Engine) AddConsumable(ctx context.Context, opts ConsumableOptions, actor domain.Actor) (domain.Consumable, error) {
	if err := auth.Require(actor, domain.RoleStockKeeper, domain.RoleManager); err != nil {
		return domain.Consumable{}, err
	}
	if opts.Name == "" {
		return domain.Consumable{}, errors.New("name is required")
	}
	if opts.Quantity < 0 {
		return domain.Consumable{}, errors.New("quantity must not be negative")
	}
	if opts.Threshold < 0 {
		return domain.Consumable{}, errors.New("threshold must not be negative")
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Consumable{}, err
	}
	defer tx.Rollback()

	c := domain.Consumable{
		ID:        newID(),
		Name:      opts.Name,
		Quantity:  opts.Quantity,
		UnitPrice: opts.UnitPrice,
		Threshold: opts.Threshold,
		CreatedAt: e.nowStr(),
	}
	if err := e.Repo.InsertConsumable(ctx, tx, c); err != nil {
		return domain.Consumable{}, fmt.Errorf("insert consumable: %w", err)
	}
	if err := e.Events.Append(ctx, tx, "stock.added", "consumable", c.ID, actor.ID, events.EventPayload{
		"name":     c.Name,
		"quantity": c.Quantity,
	}); err != nil {
		return domain.Consumable{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Consumable{}, err
	}
	return c, nil
}

// ReplenishStock increases a consumable's quantity. A nil amount falls back
// to the configured default reorder size.
func (e Engine) ReplenishStock(ctx context.Context, itemID string, amount *int, actor domain.Actor) (domain.Consumable, error) {
	if err := auth.Require(actor, domain.RoleStockKeeper); err != nil {
		return domain.Consumable{}, err
	}
	amt := e.Config.DefaultReorder()
	if amount != nil {
		amt = *amount
	}
	if amt <= 0 {
		return domain.Consumable{}, ErrInvalidAmount
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Consumable{}, err
	}
	defer tx.Rollback()

	if err := e.Repo.AdjustConsumableQuantityTx(ctx, tx, itemID, amt); err != nil {
		return domain.Consumable{}, err
	}
	c, err := e.Repo.GetConsumableTx(ctx, tx, itemID)
	if err != nil {
		return c, err
	}
	if err := e.Events.Append(ctx, tx, "stock.replenished", "consumable", c.ID, actor.ID, events.EventPayload{
		"amount":   amt,
		"quantity": c.Quantity,
	}); err != nil {
		return c, err
	}
	if err := tx.Commit(); err != nil {
		return c, err
	}
	return c, nil
}

// ReplenishAllLow tops up every low-stock item by its own threshold. Items
// are processed independently; a failure on one item does not skip the
// rest, and the joined error reports every failure.
func (e Engine) ReplenishAllLow(ctx context.Context, actor domain.Actor) ([]domain.Consumable, error) {
	if err := auth.Require(actor, domain.RoleStockKeeper); err != nil {
		return nil, err
	}
	low, err := e.Repo.ListLowConsumables(ctx)
	if err != nil {
		return nil, err
	}
	var (
		replenished []domain.Consumable
		errs        []error
	)
	for _, item := range low {
		amt := item.Threshold
		if amt <= 0 {
			continue
		}
		c, err := e.replenishOne(ctx, item.ID, amt, actor)
		if err != nil {
			errs = append(errs, fmt.Errorf("replenish %s: %w", item.Name, err))
			continue
		}
		replenished = append(replenished, c)
	}
	return replenished, errors.Join(errs...)
}

func (e Engine) replenishOne(ctx context.Context, itemID string, amount int, actor domain.Actor) (domain.Consumable, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Consumable{}, err
	}
	defer tx.Rollback()

	if err := e.Repo.AdjustConsumableQuantityTx(ctx, tx, itemID, amount); err != nil {
		return domain.Consumable{}, err
	}
	c, err := e.Repo.GetConsumableTx(ctx, tx, itemID)
	if err != nil {
		return c, err
	}
	if err := e.Events.Append(ctx, tx, "stock.replenished", "consumable", c.ID, actor.ID, events.EventPayload{
		"amount":   amount,
		"quantity": c.Quantity,
	}); err != nil {
		return c, err
	}
	return c, tx.Commit()
}

// --- staff directory ---

type ActorOptions struct {
	ID   string
	Name string
	Role domain.Role
}

// RegisterActor records a staff member or client in the directory.
func (e Engine) RegisterActor(ctx context.Context, opts ActorOptions, actor domain.Actor) (domain.Actor, error) {
	if err := auth.Require(actor, domain.RoleManager); err != nil {
		return domain.Actor{}, err
	}
	if !opts.Role.Valid() {
		return domain.Actor{}, fmt.Errorf("unknown role %q", opts.Role)
	}
	id := opts.ID
	if id == "" {
		id = newID()
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Actor{}, err
	}
	defer tx.Rollback()

	a := domain.Actor{
		ID:        id,
		Name:      opts.Name,
		Role:      opts.Role,
		CreatedAt: e.nowStr(),
	}
	if err := e.Repo.InsertActorTx(ctx, tx, a); err != nil {
		return domain.Actor{}, fmt.Errorf("insert actor: %w", err)
	}
	if err := e.Events.Append(ctx, tx, "actor.registered", "actor", a.ID, actor.ID, events.EventPayload{
		"role": string(a.Role),
	}); err != nil {
		return domain.Actor{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Actor{}, err
	}
	return a, nil
}

// RemoveActor drops an entry from the directory. Repairs keep their
// references; history is never rewritten.
func (e Engine) RemoveActor(ctx context.Context, id string, actor domain.Actor) error {
	if err := auth.Require(actor, domain.RoleManager); err != nil {
		return err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := e.Repo.DeleteActorTx(ctx, tx, id); err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, "actor.removed", "actor", id, actor.ID, nil); err != nil {
		return err
	}
	return tx.Commit()
}
