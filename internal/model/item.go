package model

// Item is a user-owned record managed from the dashboard.
type Item struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	OwnerID int64  `json:"owner_id"`
	AuditFields
}
