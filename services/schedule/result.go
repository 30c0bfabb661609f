package schedule

import "encoding/json"

// Result is the single outcome of a lookup. Exactly one variant is populated:
// success carries the normalized identifier and the ordered class list,
// failure carries a human-readable message.
type Result struct {
	Success bool
	UO      string
	Classes []string
	Err     string
}

// Successful builds the success variant. Classes is never nil on success, a
// student with no enrolled classes serializes as an empty array.
func Successful(uo string, classes []string) Result {
	if classes == nil {
		classes = []string{}
	}
	return Result{
		Success: true,
		UO:      uo,
		Classes: classes,
	}
}

func Failed(err error) Result {
	return Result{
		Success: false,
		Err:     err.Error(),
	}
}

type successJSON struct {
	Success bool     `json:"success"`
	UO      string   `json:"uo"`
	Classes []string `json:"classes"`
}

type failureJSON struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func (r Result) MarshalJSON() ([]byte, error) {
	if r.Success {
		classes := r.Classes
		if classes == nil {
			classes = []string{}
		}
		return json.Marshal(successJSON{
			Success: true,
			UO:      r.UO,
			Classes: classes,
		})
	}
	return json.Marshal(failureJSON{
		Success: false,
		Error:   r.Err,
	})
}
