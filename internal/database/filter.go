package database

import "strings"

// Filter narrows photo queries. Zero-valued fields do not constrain.
type Filter struct {
	// Client matches client_name as a case-insensitive substring.
	Client string `json:"client,omitempty"`
	// Date matches date exactly (YYYY-MM-DD).
	Date string `json:"date,omitempty"`
	// Camera matches camera_model as a case-insensitive substring.
	Camera string `json:"camera,omitempty"`
	// RequireGPS keeps only rows with both coordinates.
	RequireGPS bool `json:"location,omitempty"`
}

// IsZero reports whether the filter matches everything.
func (f Filter) IsZero() bool {
	return f == Filter{}
}

// Where builds the WHERE clause (including the keyword) and its bind
// arguments. Extra predicates such as a table's Condition are ANDed first.
// SQLite's LIKE is case-insensitive for ASCII.
func (f Filter) Where(extra ...string) (string, []any) {
	var conds []string
	var args []any

	for _, e := range extra {
		if e != "" {
			conds = append(conds, e)
		}
	}
	if f.Client != "" {
		conds = append(conds, "client_name LIKE ?")
		args = append(args, "%"+f.Client+"%")
	}
	if f.Date != "" {
		conds = append(conds, "date = ?")
		args = append(args, f.Date)
	}
	if f.Camera != "" {
		conds = append(conds, "camera_model LIKE ?")
		args = append(args, "%"+f.Camera+"%")
	}
	if f.RequireGPS {
		conds = append(conds, "gps_latitude IS NOT NULL AND gps_longitude IS NOT NULL")
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
