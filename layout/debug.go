package layout

import (
	"encoding/json"
	"os"
)

// WriteDebugJSON dumps the layout result as JSON for inspection or
// visualization tooling.
func WriteDebugJSON(res *Result, path string) error {
	if res == nil {
		return nil
	}
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
