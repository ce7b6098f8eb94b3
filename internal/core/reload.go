package core

import (
	"fmt"
	"slices"
)

// ReloadConfig reloads the configuration from disk and applies the settings
// that can change without a restart. It returns a list of what changed.
//
// Hot-reloadable settings:
//   - server.api_keys and server.cors_origins
//   - scan.max_upload_bytes
//   - modules.risk_oracle.enabled
//
// Everything else (bus, listen address, rate limit, scanner set, oracle
// credentials, logging) needs a restart.
func ReloadConfig(engine *Engine, configPath string) ([]string, error) {
	if configPath == "" {
		return nil, fmt.Errorf("no config path set, cannot reload")
	}

	loaded, err := LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if problems := loaded.Validate(); len(problems) > 0 {
		return nil, fmt.Errorf("invalid config: %v", problems)
	}

	current := engine.Config()
	next := *current
	next.Modules = make(map[string]ModuleConfig, len(current.Modules))
	for name, mod := range current.Modules {
		next.Modules[name] = mod
	}

	var changes []string

	if !slices.Equal(loaded.Server.APIKeys, current.Server.APIKeys) {
		next.Server.APIKeys = loaded.Server.APIKeys
		changes = append(changes, fmt.Sprintf("server.api_keys → %d keys", len(loaded.Server.APIKeys)))
	}
	if !slices.Equal(loaded.Server.CORSOrigins, current.Server.CORSOrigins) {
		next.Server.CORSOrigins = loaded.Server.CORSOrigins
		changes = append(changes, fmt.Sprintf("server.cors_origins → %d origins", len(loaded.Server.CORSOrigins)))
	}
	if loaded.Scan.MaxUploadBytes != current.Scan.MaxUploadBytes {
		next.Scan.MaxUploadBytes = loaded.Scan.MaxUploadBytes
		changes = append(changes, fmt.Sprintf("scan.max_upload_bytes → %d", loaded.Scan.MaxUploadBytes))
	}

	oracleOn := loaded.IsModuleEnabled(RiskOracleModule)
	if oracleOn != current.IsModuleEnabled(RiskOracleModule) {
		mod := next.Modules[RiskOracleModule]
		mod.Enabled = oracleOn
		next.Modules[RiskOracleModule] = mod
		if oracleOn {
			changes = append(changes, "module "+RiskOracleModule+" enabled")
		} else {
			changes = append(changes, "module "+RiskOracleModule+" disabled")
		}
	}

	if len(changes) == 0 {
		changes = append(changes, "no changes detected")
	} else {
		engine.setConfig(&next)
	}

	engine.Logger.Info().Strs("changes", changes).Msg("configuration reloaded")
	return changes, nil
}
