package config

import (
	"fmt"
	"os"
)

// Template returns a commented wirectl.toml carrying the default values.
func Template() string {
	return wirectlTemplate
}

func WriteTemplate(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(wirectlTemplate), 0o600)
}

const wirectlTemplate = `# wirectl gateway and codec settings
addr = ":9400"
node = "wirectl"

# register the bundled schema before the files below
load_default = true
# let entries in the files below replace bundled entries sharing their id or name
replace_default = false
schemas = []

cors_origins = ["http://localhost:3000"]
metrics = true
`
