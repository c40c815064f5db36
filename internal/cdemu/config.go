package cdemu

/*------------------------------------------------------------------
 *
 * Purpose: Optional YAML daemon configuration (§8.2), layered under
 *		the command-line flags of main.c's GOptionEntry table. Uses
 *		gopkg.in/yaml.v3 the same way deviceid.go loads tocalls.yaml.
 *
 *------------------------------------------------------------------*/

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Config mirrors the daemon's command-line surface (-n/-c/-a/-o/-b/-d),
// loadable from a file so deployments don't have to repeat long flag
// lists, and merged with flags taking precedence.
type Config struct {
	NumDevices    int    `yaml:"num-devices"`
	CtlDevice     string `yaml:"ctl-device"`
	AudioBackend  string `yaml:"audio-backend"`
	AudioDevice   string `yaml:"audio-device"`
	Bus           string `yaml:"bus"`
	Daemonize     bool   `yaml:"daemonize"`
	DNSSDName     string `yaml:"dns-sd-name"`
	DNSSDDisabled bool   `yaml:"dns-sd-disabled"`
}

// DefaultConfig matches main.c's static defaults exactly.
func DefaultConfig() Config {
	return Config{
		NumDevices:   1,
		CtlDevice:    "/dev/vhba_ctl",
		AudioBackend: "null",
		Bus:          "system",
	}
}

// LoadConfig reads a YAML config file over top of DefaultConfig; a
// missing file is not an error, since the file is entirely optional.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	} else if err != nil {
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}
