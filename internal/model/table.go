package model

// TableType groups tables by kind (booth, window, outdoor...).
type TableType struct {
	TableTypeID uint64 `json:"TableTypeID"` // table_types.id
	Type        string `json:"Type"`        // table_types.type
}

// Table is a physical table that can be reserved.  Capacity is the number
// of seats and is at least one.
type Table struct {
	TableID     uint64 `json:"TableID"`     // tables.id
	TableTypeID uint64 `json:"TableTypeID"` // tables.table_type_id
	Location    string `json:"Location"`    // tables.location
	Capacity    int    `json:"Capacity"`    // tables.capacity
	Type        string `json:"Type"`        // joined table_types.type
}
