package server

// Request payloads

type ScheduleRepairRequest struct {
	ElevatorID  string `json:"elevator_id"`
	Description string `json:"description"`
	ScheduledAt string `json:"scheduled_at" format:"date-time"`
}

type RescheduleRepairRequest struct {
	ElevatorID  string `json:"elevator_id"`
	ScheduledAt string `json:"scheduled_at" format:"date-time"`
}

type AssignMechanicRequest struct {
	MechanicID string `json:"mechanic_id"`
}

type CompleteRepairRequest struct {
	Cost *float64 `json:"cost,omitempty"`
}

type RecordUsageRequest struct {
	Note string `json:"note"`
}

type AddElevatorRequest struct {
	Category string `json:"category"`
}

type AddConsumableRequest struct {
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	Threshold int     `json:"threshold"`
}

type ReplenishStockRequest struct {
	Amount *int `json:"amount,omitempty"`
}

type RegisterActorRequest struct {
	ID   *string `json:"id,omitempty"`
	Name string  `json:"name"`
	Role string  `json:"role" enum:"Client,Manager,Receptionist,Mechanic,StockKeeper"`
}
