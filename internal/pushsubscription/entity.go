package pushsubscription

import "time"

type Subscription struct {
	ID         string    `json:"id"`
	EmployeeID string    `json:"employeeId"`
	Endpoint   string    `json:"endpoint"`
	P256dhKey  string    `json:"p256dhKey"`
	AuthKey    string    `json:"authKey"`
	CreatedAt  time.Time `json:"createdAt"`
}
