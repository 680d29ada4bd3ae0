package identity

import "time"

// Project carries the fields the resource-access guard needs: existence
// and the designated manager. The full project document lives with the
// project CRUD, outside this core.
type Project struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Status    string    `json:"status,omitempty"`
	ManagerID string    `json:"manager_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
