package domain

// Elevator statuses.
const (
	ElevatorAvailable   = "Available"
	ElevatorOccupied    = "Occupied"
	ElevatorMaintenance = "Maintenance"
)

// Repair statuses.
const (
	RepairPending    = "Pending"
	RepairApproved   = "Approved"
	RepairInProgress = "InProgress"
	RepairCompleted  = "Completed"
	RepairCancelled  = "Cancelled"
)

// Role is the actor's role tag. A client is an explicit role, not the
// absence of one.
type Role string

const (
	RoleClient       Role = "Client"
	RoleManager      Role = "Manager"
	RoleReceptionist Role = "Receptionist"
	RoleMechanic     Role = "Mechanic"
	RoleStockKeeper  Role = "StockKeeper"
)

// StaffRoles lists the privileged roles; anything else is client-only.
var StaffRoles = []Role{RoleManager, RoleReceptionist, RoleMechanic, RoleStockKeeper}

// Valid reports whether r names a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleClient, RoleManager, RoleReceptionist, RoleMechanic, RoleStockKeeper:
		return true
	}
	return false
}

// Actor is the party invoking an operation, as reported by the identity
// collaborator.
type Actor struct {
	ID        string `json:"id"`
	Name      string `json:"name,omitempty"`
	Role      Role   `json:"role" enum:"Client,Manager,Receptionist,Mechanic,StockKeeper"`
	CreatedAt string `json:"created_at,omitempty" format:"date-time"`
}

type Elevator struct {
	ID        string `json:"id"`
	Category  string `json:"category"`
	Status    string `json:"status" enum:"Available,Occupied,Maintenance"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

// TerminalRepairStatus reports whether a repair in this status has left the
// active set and no longer occupies its elevator.
func TerminalRepairStatus(status string) bool {
	return status == RepairCompleted || status == RepairCancelled
}

type Repair struct {
	ID          string   `json:"id"`
	ClientID    string   `json:"client_id"`
	ElevatorID  string   `json:"elevator_id"`
	MechanicID  *string  `json:"mechanic_id,omitempty"`
	Description string   `json:"description"`
	ScheduledAt string   `json:"scheduled_at" format:"date-time"`
	Status      string   `json:"status" enum:"Pending,Approved,InProgress,Completed,Cancelled"`
	Cost        *float64 `json:"cost,omitempty"`
	Notes       string   `json:"notes,omitempty"`
	CreatedAt   string   `json:"created_at" format:"date-time"`
	UpdatedAt   string   `json:"updated_at" format:"date-time"`
	CompletedAt *string  `json:"completed_at,omitempty" format:"date-time"`
}

type Consumable struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	Threshold int     `json:"threshold"`
	CreatedAt string  `json:"created_at" format:"date-time"`
}

// Low reports whether the consumable is at or below its reorder threshold.
func (c Consumable) Low() bool {
	return c.Quantity <= c.Threshold
}

type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json"`
}
