// Package db creates store drivers from the runtime profile.
package db

import (
	"github.com/pkg/errors"

	"github.com/jeffreyouni/life-butler/internal/profile"
	"github.com/jeffreyouni/life-butler/store"
	"github.com/jeffreyouni/life-butler/store/db/sqlite"
)

// NewDBDriver creates a new db driver based on profile.
func NewDBDriver(profile *profile.Profile) (store.Driver, error) {
	switch profile.Driver {
	case "sqlite":
		driver, err := sqlite.NewDB(profile)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create sqlite driver")
		}
		return driver, nil
	default:
		return nil, errors.Errorf("unknown db driver %q: only 'sqlite' is supported", profile.Driver)
	}
}
