package config

import (
	"github.com/cschmidt0121/TA-DUOSecurity2FA/source/duo"
)

// LoadDuoConfig delegates to the Duo source loader while centralizing
// loader entrypoints under internal/config.
func LoadDuoConfig(path string) (duo.Config, error) {
	return duo.LoadConfig(path)
}
