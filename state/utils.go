package state

type DeprecatedOption struct {
	Name        string
	Description string
}

// GetDeprecatedConfigOptions reports deprecated options found in cfg and
// migrates their values to the current ones.
func GetDeprecatedConfigOptions(cfg *Config) []DeprecatedOption {
	var returnValue []DeprecatedOption

	if len(cfg.Telegram.SudoUsersID) > 0 {
		returnValue = append(returnValue, DeprecatedOption{
			Name:        "[telegram.sudo_users_id]",
			Description: "It has been replaced with [telegram.admin_ids]",
		})
		cfg.Telegram.AdminIDs = append(cfg.Telegram.AdminIDs, cfg.Telegram.SudoUsersID...)
		cfg.Telegram.SudoUsersID = nil
	}

	return returnValue
}
