// Package survey runs filter sets against the dataset and packages the rows
// with the filters that produced them.
package survey

import (
	"encoding/json"

	"github.com/Vinayak1844/Statathon-Project/internal/filters"
	"github.com/Vinayak1844/Statathon-Project/internal/storage"
)

// Result is the outcome of one filter query. A successful result always
// carries count, filters_applied and data; a failed one only the error.
type Result struct {
	Success        bool
	Count          int
	FiltersApplied filters.Set
	Data           []storage.Row
	Error          string
}

type successJSON struct {
	Success        bool          `json:"success"`
	Count          int           `json:"count"`
	FiltersApplied filters.Set   `json:"filters_applied"`
	Data           []storage.Row `json:"data"`
}

type failureJSON struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// MarshalJSON writes the success or failure shape.
func (r Result) MarshalJSON() ([]byte, error) {
	if !r.Success {
		return json.Marshal(failureJSON{Success: false, Error: r.Error})
	}
	data := r.Data
	if data == nil {
		data = []storage.Row{}
	}
	return json.Marshal(successJSON{
		Success:        true,
		Count:          r.Count,
		FiltersApplied: r.FiltersApplied,
		Data:           data,
	})
}

func packageRows(set filters.Set, rows []storage.Row) *Result {
	return &Result{
		Success:        true,
		Count:          len(rows),
		FiltersApplied: set,
		Data:           rows,
	}
}

func failure(msg string) *Result {
	return &Result{Success: false, Error: msg}
}
