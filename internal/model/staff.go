package model

// Staff is an employee.  Chefs are staff whose Role is "Chef".
type Staff struct {
	StaffID     uint64  `json:"StaffID"`
	Name        string  `json:"Name"`
	Role        string  `json:"Role"`
	ContactInfo *string `json:"ContactInfo"`
}
