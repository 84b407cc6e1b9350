package engine_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"liftbay/internal/config"
	"liftbay/internal/db"
	"liftbay/internal/domain"
	"liftbay/internal/engine"
	"liftbay/internal/engine/auth"
	"liftbay/internal/migrate"
	"liftbay/internal/repo"
)

var (
	client       = domain.Actor{ID: "client-1", Role: domain.RoleClient}
	manager      = domain.Actor{ID: "mgr-1", Role: domain.RoleManager}
	receptionist = domain.Actor{ID: "rec-1", Role: domain.RoleReceptionist}
	mechanic     = domain.Actor{ID: "mech-1", Role: domain.RoleMechanic}
	stockKeeper  = domain.Actor{ID: "stock-1", Role: domain.RoleStockKeeper}
)

type testEnv struct {
	Engine engine.Engine
	Ctx    context.Context
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	eng := engine.New(conn, config.Default())
	eng.Now = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }
	return testEnv{Engine: eng, Ctx: context.Background()}
}

func (env testEnv) addElevator(t *testing.T) domain.Elevator {
	t.Helper()
	el, err := env.Engine.AddElevator(env.Ctx, "passenger", manager)
	if err != nil {
		t.Fatalf("add elevator: %v", err)
	}
	return el
}

func (env testEnv) registerMechanic(t *testing.T, id string) domain.Actor {
	t.Helper()
	a, err := env.Engine.RegisterActor(env.Ctx, engine.ActorOptions{
		ID:   id,
		Name: "Mechanic " + id,
		Role: domain.RoleMechanic,
	}, manager)
	if err != nil {
		t.Fatalf("register mechanic: %v", err)
	}
	return a
}

func (env testEnv) schedule(t *testing.T, elevatorID string) domain.Repair {
	t.Helper()
	rep, err := env.Engine.ScheduleRepair(env.Ctx, engine.ScheduleOptions{
		ElevatorID:  elevatorID,
		Description: "stuck between floors",
		ScheduledAt: "2026-02-01T09:00:00Z",
	}, client)
	if err != nil {
		t.Fatalf("schedule repair: %v", err)
	}
	return rep
}

func (env testEnv) elevatorStatus(t *testing.T, id string) string {
	t.Helper()
	el, err := env.Engine.Repo.GetElevator(env.Ctx, id)
	if err != nil {
		t.Fatalf("get elevator: %v", err)
	}
	return el.Status
}

func TestScheduleRepairOccupiesElevator(t *testing.T) {
	env := newTestEnv(t)
	el := env.addElevator(t)

	rep := env.schedule(t, el.ID)
	if rep.Status != domain.RepairPending {
		t.Fatalf("status = %s, want Pending", rep.Status)
	}
	if rep.ClientID != client.ID {
		t.Fatalf("client = %s, want %s", rep.ClientID, client.ID)
	}
	if got := env.elevatorStatus(t, el.ID); got != domain.ElevatorOccupied {
		t.Fatalf("elevator status = %s, want Occupied", got)
	}

	// the bay is taken; a second booking must fail
	_, err := env.Engine.ScheduleRepair(env.Ctx, engine.ScheduleOptions{
		ElevatorID:  el.ID,
		Description: "doors rattle",
		ScheduledAt: "2026-02-02T09:00:00Z",
	}, client)
	if !errors.Is(err, engine.ErrElevatorUnavailable) {
		t.Fatalf("second schedule: %v, want ErrElevatorUnavailable", err)
	}
}

func TestScheduleRepairValidation(t *testing.T) {
	env := newTestEnv(t)
	el := env.addElevator(t)

	cases := []struct {
		name string
		opts engine.ScheduleOptions
	}{
		{"missing elevator", engine.ScheduleOptions{Description: "x", ScheduledAt: "2026-02-01T09:00:00Z"}},
		{"missing description", engine.ScheduleOptions{ElevatorID: el.ID, ScheduledAt: "2026-02-01T09:00:00Z"}},
		{"missing time", engine.ScheduleOptions{ElevatorID: el.ID, Description: "x"}},
		{"bad time", engine.ScheduleOptions{ElevatorID: el.ID, Description: "x", ScheduledAt: "tomorrow"}},
	}
	for _, tc := range cases {
		if _, err := env.Engine.ScheduleRepair(env.Ctx, tc.opts, client); err == nil {
			t.Errorf("%s: expected error", tc.name)
		}
	}

	_, err := env.Engine.ScheduleRepair(env.Ctx, engine.ScheduleOptions{
		ElevatorID:  "no-such-elevator",
		Description: "x",
		ScheduledAt: "2026-02-01T09:00:00Z",
	}, client)
	if !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("unknown elevator: %v, want ErrNotFound", err)
	}

	_, err = env.Engine.ScheduleRepair(env.Ctx, engine.ScheduleOptions{
		ElevatorID:  el.ID,
		Description: "x",
		ScheduledAt: "2026-02-01T09:00:00Z",
	}, mechanic)
	var fe auth.ForbiddenError
	if !errors.As(err, &fe) {
		t.Fatalf("mechanic scheduling: %v, want ForbiddenError", err)
	}
}

func TestConcurrentScheduleSingleWinner(t *testing.T) {
	env := newTestEnv(t)
	el := env.addElevator(t)

	const callers = 4
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.Engine.ScheduleRepair(env.Ctx, engine.ScheduleOptions{
				ElevatorID:  el.ID,
				Description: "contended booking",
				ScheduledAt: "2026-02-01T09:00:00Z",
			}, client)
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
		}
	}
	if wins != 1 {
		t.Fatalf("wins = %d, want exactly 1 (errs: %v)", wins, errs)
	}
	reps, err := env.Engine.Repo.ListRepairs(env.Ctx, repo.RepairFilters{ElevatorID: el.ID})
	if err != nil {
		t.Fatalf("list repairs: %v", err)
	}
	if len(reps) != 1 {
		t.Fatalf("repairs = %d, want 1", len(reps))
	}
}

func TestRepairLifecycle(t *testing.T) {
	env := newTestEnv(t)
	el := env.addElevator(t)
	mech := env.registerMechanic(t, mechanic.ID)
	rep := env.schedule(t, el.ID)

	rep, err := env.Engine.ApproveRepair(env.Ctx, rep.ID, receptionist)
	if err != nil || rep.Status != domain.RepairApproved {
		t.Fatalf("approve: status=%s err=%v", rep.Status, err)
	}

	rep, err = env.Engine.AssignMechanic(env.Ctx, rep.ID, mech.ID, receptionist)
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if rep.MechanicID == nil || *rep.MechanicID != mech.ID {
		t.Fatalf("mechanic not bound: %+v", rep.MechanicID)
	}

	rep, err = env.Engine.ClaimRepair(env.Ctx, rep.ID, mechanic)
	if err != nil || rep.Status != domain.RepairInProgress {
		t.Fatalf("claim: status=%s err=%v", rep.Status, err)
	}

	rep, err = env.Engine.RecordUsage(env.Ctx, rep.ID, "2x door roller", mechanic)
	if err != nil {
		t.Fatalf("usage: %v", err)
	}
	rep, err = env.Engine.RecordUsage(env.Ctx, rep.ID, "1x controller board", mechanic)
	if err != nil {
		t.Fatalf("usage: %v", err)
	}
	if rep.Notes != "2x door roller\n1x controller board" {
		t.Fatalf("notes = %q", rep.Notes)
	}

	rep, err = env.Engine.CompleteRepair(env.Ctx, rep.ID, nil, mechanic)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if rep.Status != domain.RepairCompleted {
		t.Fatalf("status = %s, want Completed", rep.Status)
	}
	if rep.Cost == nil || *rep.Cost != 100.0 {
		t.Fatalf("cost = %v, want default 100", rep.Cost)
	}
	if rep.CompletedAt == nil {
		t.Fatal("completed_at not set")
	}
	if got := env.elevatorStatus(t, el.ID); got != domain.ElevatorAvailable {
		t.Fatalf("elevator after completion = %s, want Available", got)
	}
}

func TestCompleteRepairExplicitCost(t *testing.T) {
	env := newTestEnv(t)
	el := env.addElevator(t)
	env.registerMechanic(t, mechanic.ID)
	rep := env.schedule(t, el.ID)

	if _, err := env.Engine.ClaimRepair(env.Ctx, rep.ID, mechanic); err != nil {
		t.Fatalf("claim: %v", err)
	}
	cost := 245.5
	done, err := env.Engine.CompleteRepair(env.Ctx, rep.ID, &cost, mechanic)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if done.Cost == nil || *done.Cost != cost {
		t.Fatalf("cost = %v, want %v", done.Cost, cost)
	}
}

func TestRoleGateRunsBeforeLookup(t *testing.T) {
	env := newTestEnv(t)

	// wrong role on a nonexistent repair must say forbidden, not "not found"
	_, err := env.Engine.ApproveRepair(env.Ctx, "no-such-repair", client)
	var fe auth.ForbiddenError
	if !errors.As(err, &fe) {
		t.Fatalf("approve as client: %v, want ForbiddenError", err)
	}
	if errors.Is(err, repo.ErrNotFound) {
		t.Fatal("forbidden error must not reveal existence")
	}

	_, err = env.Engine.BlockElevator(env.Ctx, "no-such-elevator", mechanic)
	if !errors.As(err, &fe) {
		t.Fatalf("block as mechanic: %v, want ForbiddenError", err)
	}
}

func TestInvalidTransitions(t *testing.T) {
	env := newTestEnv(t)
	el := env.addElevator(t)
	env.registerMechanic(t, mechanic.ID)
	rep := env.schedule(t, el.ID)

	if _, err := env.Engine.ApproveRepair(env.Ctx, rep.ID, receptionist); err != nil {
		t.Fatalf("approve: %v", err)
	}
	_, err := env.Engine.ApproveRepair(env.Ctx, rep.ID, receptionist)
	var te engine.InvalidTransitionError
	if !errors.As(err, &te) {
		t.Fatalf("double approve: %v, want InvalidTransitionError", err)
	}
	if te.From != domain.RepairApproved || te.To != domain.RepairApproved {
		t.Fatalf("transition error = %+v", te)
	}

	if _, err := env.Engine.ClaimRepair(env.Ctx, rep.ID, mechanic); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if _, err := env.Engine.CompleteRepair(env.Ctx, rep.ID, nil, mechanic); err != nil {
		t.Fatalf("complete: %v", err)
	}
	_, err = env.Engine.ClaimRepair(env.Ctx, rep.ID, mechanic)
	if !errors.As(err, &te) {
		t.Fatalf("claim completed: %v, want InvalidTransitionError", err)
	}
}

func TestClaimExclusivity(t *testing.T) {
	env := newTestEnv(t)
	el := env.addElevator(t)
	mech := env.registerMechanic(t, mechanic.ID)
	other := domain.Actor{ID: "mech-2", Role: domain.RoleMechanic}
	rep := env.schedule(t, el.ID)

	if _, err := env.Engine.AssignMechanic(env.Ctx, rep.ID, mech.ID, receptionist); err != nil {
		t.Fatalf("assign: %v", err)
	}
	_, err := env.Engine.ClaimRepair(env.Ctx, rep.ID, other)
	var ae engine.AssigneeMismatchError
	if !errors.As(err, &ae) {
		t.Fatalf("claim by other: %v, want AssigneeMismatchError", err)
	}
	if _, err := env.Engine.ClaimRepair(env.Ctx, rep.ID, mechanic); err != nil {
		t.Fatalf("claim by assignee: %v", err)
	}
	// usage and completion are bound to the assignee too
	_, err = env.Engine.RecordUsage(env.Ctx, rep.ID, "oil", other)
	if !errors.As(err, &ae) {
		t.Fatalf("usage by other: %v, want AssigneeMismatchError", err)
	}
	_, err = env.Engine.CompleteRepair(env.Ctx, rep.ID, nil, other)
	if !errors.As(err, &ae) {
		t.Fatalf("complete by other: %v, want AssigneeMismatchError", err)
	}
}

func TestAssignMechanicValidation(t *testing.T) {
	env := newTestEnv(t)
	el := env.addElevator(t)
	rep := env.schedule(t, el.ID)

	// directory entry must exist and carry the Mechanic role
	_, err := env.Engine.AssignMechanic(env.Ctx, rep.ID, "ghost", receptionist)
	if !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("assign unknown: %v, want ErrNotFound", err)
	}
	if _, err := env.Engine.RegisterActor(env.Ctx, engine.ActorOptions{
		ID: "keeper-1", Name: "Keeper", Role: domain.RoleStockKeeper,
	}, manager); err != nil {
		t.Fatalf("register: %v", err)
	}
	_, err = env.Engine.AssignMechanic(env.Ctx, rep.ID, "keeper-1", receptionist)
	if !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("assign non-mechanic: %v, want ErrNotFound", err)
	}

	// assigning a pending repair bumps it to Approved
	mech := env.registerMechanic(t, mechanic.ID)
	got, err := env.Engine.AssignMechanic(env.Ctx, rep.ID, mech.ID, receptionist)
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if got.Status != domain.RepairApproved {
		t.Fatalf("status = %s, want Approved", got.Status)
	}
}

func TestCancelRepair(t *testing.T) {
	env := newTestEnv(t)
	el := env.addElevator(t)
	env.registerMechanic(t, mechanic.ID)
	rep := env.schedule(t, el.ID)

	got, err := env.Engine.CancelRepair(env.Ctx, rep.ID, receptionist)
	if err != nil || got.Status != domain.RepairCancelled {
		t.Fatalf("cancel: status=%s err=%v", got.Status, err)
	}
	if s := env.elevatorStatus(t, el.ID); s != domain.ElevatorAvailable {
		t.Fatalf("elevator after cancel = %s, want Available", s)
	}

	// a repair already being worked on cannot be cancelled
	rep2 := env.schedule(t, el.ID)
	if _, err := env.Engine.ClaimRepair(env.Ctx, rep2.ID, mechanic); err != nil {
		t.Fatalf("claim: %v", err)
	}
	_, err = env.Engine.CancelRepair(env.Ctx, rep2.ID, manager)
	var te engine.InvalidTransitionError
	if !errors.As(err, &te) {
		t.Fatalf("cancel in-progress: %v, want InvalidTransitionError", err)
	}
}

func TestRescheduleRepair(t *testing.T) {
	env := newTestEnv(t)
	elA := env.addElevator(t)
	elB := env.addElevator(t)
	rep := env.schedule(t, elA.ID)

	if _, err := env.Engine.ApproveRepair(env.Ctx, rep.ID, receptionist); err != nil {
		t.Fatalf("approve: %v", err)
	}
	got, err := env.Engine.RescheduleRepair(env.Ctx, engine.RescheduleOptions{
		RepairID:    rep.ID,
		ElevatorID:  elB.ID,
		ScheduledAt: "2026-03-01T10:00:00Z",
	}, receptionist)
	if err != nil {
		t.Fatalf("reschedule: %v", err)
	}
	if got.Status != domain.RepairPending {
		t.Fatalf("status = %s, want Pending again", got.Status)
	}
	if got.ElevatorID != elB.ID || got.ScheduledAt != "2026-03-01T10:00:00Z" {
		t.Fatalf("repair not moved: %+v", got)
	}
	if s := env.elevatorStatus(t, elA.ID); s != domain.ElevatorAvailable {
		t.Fatalf("old elevator = %s, want Available", s)
	}
	if s := env.elevatorStatus(t, elB.ID); s != domain.ElevatorOccupied {
		t.Fatalf("new elevator = %s, want Occupied", s)
	}
}

func TestRescheduleToUnavailableElevatorRollsBack(t *testing.T) {
	env := newTestEnv(t)
	elA := env.addElevator(t)
	elB := env.addElevator(t)
	rep := env.schedule(t, elA.ID)
	if _, err := env.Engine.BlockElevator(env.Ctx, elB.ID, manager); err != nil {
		t.Fatalf("block: %v", err)
	}

	_, err := env.Engine.RescheduleRepair(env.Ctx, engine.RescheduleOptions{
		RepairID:    rep.ID,
		ElevatorID:  elB.ID,
		ScheduledAt: "2026-03-01T10:00:00Z",
	}, receptionist)
	if !errors.Is(err, engine.ErrElevatorUnavailable) {
		t.Fatalf("reschedule: %v, want ErrElevatorUnavailable", err)
	}
	// the failed move must leave everything as it was
	if s := env.elevatorStatus(t, elA.ID); s != domain.ElevatorOccupied {
		t.Fatalf("old elevator = %s, want still Occupied", s)
	}
	after, err := env.Engine.Repo.GetRepair(env.Ctx, rep.ID)
	if err != nil {
		t.Fatalf("get repair: %v", err)
	}
	if after.ElevatorID != elA.ID || after.ScheduledAt != rep.ScheduledAt {
		t.Fatalf("repair mutated by failed reschedule: %+v", after)
	}
}

func TestRescheduleSameElevator(t *testing.T) {
	env := newTestEnv(t)
	el := env.addElevator(t)
	rep := env.schedule(t, el.ID)

	got, err := env.Engine.RescheduleRepair(env.Ctx, engine.RescheduleOptions{
		RepairID:    rep.ID,
		ElevatorID:  el.ID,
		ScheduledAt: "2026-03-05T10:00:00Z",
	}, receptionist)
	if err != nil {
		t.Fatalf("same-elevator reschedule: %v", err)
	}
	if got.ScheduledAt != "2026-03-05T10:00:00Z" {
		t.Fatalf("scheduled_at = %s", got.ScheduledAt)
	}
	if s := env.elevatorStatus(t, el.ID); s != domain.ElevatorOccupied {
		t.Fatalf("elevator = %s, want Occupied", s)
	}
}

func TestBlockAndUnblockElevator(t *testing.T) {
	env := newTestEnv(t)
	el := env.addElevator(t)

	got, err := env.Engine.BlockElevator(env.Ctx, el.ID, manager)
	if err != nil || got.Status != domain.ElevatorMaintenance {
		t.Fatalf("block: status=%s err=%v", got.Status, err)
	}
	_, err = env.Engine.ScheduleRepair(env.Ctx, engine.ScheduleOptions{
		ElevatorID:  el.ID,
		Description: "x",
		ScheduledAt: "2026-02-01T09:00:00Z",
	}, client)
	if !errors.Is(err, engine.ErrElevatorUnavailable) {
		t.Fatalf("schedule on blocked: %v, want ErrElevatorUnavailable", err)
	}

	// unblock twice: second call is a no-op, not an error
	for i := 0; i < 2; i++ {
		got, err = env.Engine.UnblockElevator(env.Ctx, el.ID, manager)
		if err != nil || got.Status != domain.ElevatorAvailable {
			t.Fatalf("unblock #%d: status=%s err=%v", i+1, got.Status, err)
		}
	}

	// an occupied elevator cannot be pulled out from under its repair
	env.schedule(t, el.ID)
	_, err = env.Engine.BlockElevator(env.Ctx, el.ID, manager)
	if !errors.Is(err, engine.ErrElevatorUnavailable) {
		t.Fatalf("block occupied: %v, want ErrElevatorUnavailable", err)
	}
}

func TestStockReplenishment(t *testing.T) {
	env := newTestEnv(t)

	c, err := env.Engine.AddConsumable(env.Ctx, engine.ConsumableOptions{
		Name: "door roller", Quantity: 2, UnitPrice: 12.5, Threshold: 5,
	}, stockKeeper)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	low, err := env.Engine.Repo.ListLowConsumables(env.Ctx)
	if err != nil || len(low) != 1 || low[0].ID != c.ID {
		t.Fatalf("low list = %+v err=%v", low, err)
	}

	// nil amount uses the configured default reorder size
	got, err := env.Engine.ReplenishStock(env.Ctx, c.ID, nil, stockKeeper)
	if err != nil {
		t.Fatalf("replenish: %v", err)
	}
	if got.Quantity != 12 {
		t.Fatalf("quantity = %d, want 12", got.Quantity)
	}
	low, err = env.Engine.Repo.ListLowConsumables(env.Ctx)
	if err != nil || len(low) != 0 {
		t.Fatalf("low after replenish = %+v err=%v", low, err)
	}

	zero := 0
	if _, err := env.Engine.ReplenishStock(env.Ctx, c.ID, &zero, stockKeeper); !errors.Is(err, engine.ErrInvalidAmount) {
		t.Fatalf("zero amount: %v, want ErrInvalidAmount", err)
	}
	neg := -3
	if _, err := env.Engine.ReplenishStock(env.Ctx, c.ID, &neg, stockKeeper); !errors.Is(err, engine.ErrInvalidAmount) {
		t.Fatalf("negative amount: %v, want ErrInvalidAmount", err)
	}
	if _, err := env.Engine.ReplenishStock(env.Ctx, "no-such-item", nil, stockKeeper); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("unknown item: %v, want ErrNotFound", err)
	}
	if _, err := env.Engine.ReplenishStock(env.Ctx, c.ID, nil, manager); err == nil {
		t.Fatal("manager replenish: expected ForbiddenError")
	}
}

func TestReplenishAllLow(t *testing.T) {
	env := newTestEnv(t)

	a, err := env.Engine.AddConsumable(env.Ctx, engine.ConsumableOptions{
		Name: "cable grease", Quantity: 1, Threshold: 4,
	}, stockKeeper)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	b, err := env.Engine.AddConsumable(env.Ctx, engine.ConsumableOptions{
		Name: "brake pad", Quantity: 0, Threshold: 6,
	}, stockKeeper)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	// zero threshold means no reorder size; skipped by the sweep
	if _, err := env.Engine.AddConsumable(env.Ctx, engine.ConsumableOptions{
		Name: "shim stock", Quantity: 0, Threshold: 0,
	}, stockKeeper); err != nil {
		t.Fatalf("add: %v", err)
	}

	replenished, err := env.Engine.ReplenishAllLow(env.Ctx, stockKeeper)
	if err != nil {
		t.Fatalf("replenish all: %v", err)
	}
	if len(replenished) != 2 {
		t.Fatalf("replenished = %d items, want 2", len(replenished))
	}
	gotA, _ := env.Engine.Repo.GetConsumable(env.Ctx, a.ID)
	if gotA.Quantity != 5 {
		t.Fatalf("%s quantity = %d, want 5", a.Name, gotA.Quantity)
	}
	gotB, _ := env.Engine.Repo.GetConsumable(env.Ctx, b.ID)
	if gotB.Quantity != 6 {
		t.Fatalf("%s quantity = %d, want 6", b.Name, gotB.Quantity)
	}
	if gotA.Low() || gotB.Low() {
		t.Fatalf("items still low after sweep: %+v %+v", gotA, gotB)
	}
}

func TestActorDirectory(t *testing.T) {
	env := newTestEnv(t)

	a, err := env.Engine.RegisterActor(env.Ctx, engine.ActorOptions{
		Name: "Dana", Role: domain.RoleReceptionist,
	}, manager)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if a.ID == "" {
		t.Fatal("expected generated id")
	}

	if _, err := env.Engine.RegisterActor(env.Ctx, engine.ActorOptions{
		Name: "Bad", Role: domain.Role("Janitor"),
	}, manager); err == nil {
		t.Fatal("unknown role: expected error")
	}
	if _, err := env.Engine.RegisterActor(env.Ctx, engine.ActorOptions{
		Name: "Sneaky", Role: domain.RoleClient,
	}, receptionist); err == nil {
		t.Fatal("non-manager register: expected ForbiddenError")
	}

	listed, err := env.Engine.Repo.ListActors(env.Ctx, domain.RoleReceptionist)
	if err != nil || len(listed) != 1 {
		t.Fatalf("list = %+v err=%v", listed, err)
	}

	if err := env.Engine.RemoveActor(env.Ctx, a.ID, manager); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := env.Engine.RemoveActor(env.Ctx, a.ID, manager); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("remove again: %v, want ErrNotFound", err)
	}
}

func TestEventLogRecordsLifecycle(t *testing.T) {
	env := newTestEnv(t)
	el := env.addElevator(t)
	env.registerMechanic(t, mechanic.ID)
	rep := env.schedule(t, el.ID)
	if _, err := env.Engine.ClaimRepair(env.Ctx, rep.ID, mechanic); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if _, err := env.Engine.CompleteRepair(env.Ctx, rep.ID, nil, mechanic); err != nil {
		t.Fatalf("complete: %v", err)
	}

	evts, err := env.Engine.Repo.LatestEvents(env.Ctx, 50, "", "repair", rep.ID)
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	types := map[string]bool{}
	for _, e := range evts {
		types[e.Type] = true
	}
	for _, want := range []string{"repair.scheduled", "repair.claimed", "repair.completed"} {
		if !types[want] {
			t.Errorf("missing event %s (got %v)", want, types)
		}
	}
}
