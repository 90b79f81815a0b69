package ops

import (
	"encoding/json"
	"os"

	"github.com/yanun0323/errors"
)

// loadJSON reads one JSON config file into out.
func loadJSON(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "read config "+path)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.Wrap(err, "parse config "+path)
	}
	return nil
}
