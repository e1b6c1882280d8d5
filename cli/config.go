package cli

import (
	"os"
	"path/filepath"

	"gopkg.in/ini.v1"

	"github.com/mobile-next/streamkit/types"
	"github.com/mobile-next/streamkit/utils"
)

// loadDefaults reads session defaults from ~/.config/streamkit/config.ini.
// Command-line flags override anything found there. A missing file is fine.
func loadDefaults() types.SessionConfig {
	config := types.SessionConfig{}

	home, err := os.UserHomeDir()
	if err != nil {
		return config
	}

	path := filepath.Join(home, ".config", "streamkit", "config.ini")
	file, err := ini.Load(path)
	if err != nil {
		return config
	}

	section := file.Section("session")
	config.Platform = types.Platform(section.Key("platform").String())
	config.Device = section.Key("device").String()
	config.OSVersion = section.Key("osVersion").String()
	config.App = section.Key("app").String()
	config.Proxy = types.ProxyMode(section.Key("proxy").String())
	config.Record = section.Key("record").MustBool(false)
	config.Language = section.Key("language").String()
	config.EnableAdb = section.Key("enableAdb").MustBool(false)

	if endpoint == "" {
		endpoint = file.Section("service").Key("endpoint").String()
	}

	utils.Verbose("loaded session defaults from %s", path)
	return config
}

// sessionConfig merges ini defaults with command-line flags.
func sessionConfig() types.SessionConfig {
	config := loadDefaults()

	if configPlatform != "" {
		config.Platform = types.Platform(configPlatform)
	}
	if configDevice != "" {
		config.Device = configDevice
	}
	if configProxy != "" {
		config.Proxy = types.ProxyMode(configProxy)
	}
	if configRecord {
		config.Record = true
	}
	if configDebug {
		config.Debug = true
	}
	return config
}
