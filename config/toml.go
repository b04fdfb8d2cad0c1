package config

import (
	"os"

	"github.com/mitchellh/go-homedir"
	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
)

// Defaults is the subset of Config that can be kept in
// ~/.fmap/config.toml. No fmap command calls ReadDefaults or
// DefaultConfigPath, so the file does not affect a run; flags are the
// only source of a run's Config.
type Defaults struct {
	NThreads      int   `toml:"nthreads"`
	Seed          int64 `toml:"seed"`
	QualThresh    int   `toml:"qual_thresh"`
	MaxBacktracks int   `toml:"max_backtracks"`
	SeedLen       int   `toml:"seed_len"`
	SeedMms       int   `toml:"seed_mms"`
}

// DefaultConfigPath returns ~/.fmap/config.toml, resolved via go-homedir
// so it also works when $HOME is unset but the OS can still report the
// user's home directory (e.g. via the Windows API on that platform).
func DefaultConfigPath() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", errors.Wrap(err, "resolving home directory")
	}
	return home + string(os.PathSeparator) + ".fmap" + string(os.PathSeparator) + "config.toml", nil
}

// ReadDefaults loads a TOML defaults file. A missing file is not an
// error; it simply yields the zero Defaults.
func ReadDefaults(path string) (Defaults, error) {
	var d Defaults
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return d, nil
		}
		return d, errors.Wrapf(err, "reading config file %s", path)
	}
	if err := toml.Unmarshal(data, &d); err != nil {
		return d, errors.Wrapf(err, "parsing config file %s", path)
	}
	return d, nil
}
