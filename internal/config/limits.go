package config

import (
	"blindbox/internal/domain"
	"blindbox/internal/errs"

	"github.com/BurntSushi/toml"
)

// limitsFile is the TOML layout of LIMITS_FILE:
//
//	[maxima]
//	collectible_asset = 5
//
//	[table]
//	max_range = 10000
type limitsFile struct {
	Maxima map[string]uint64 `toml:"maxima"`
	Table  struct {
		MaxRange         *uint32 `toml:"max_range"`
		ScarceAmount     *uint64 `toml:"scarce_amount"`
		MaxUtilityAmount *uint32 `toml:"max_utility_amount"`
		UtilityUnit      *uint64 `toml:"utility_unit"`
	} `toml:"table"`
}

func (c *Config) applyLimitsFile(path string) error {
	var f limitsFile
	md, err := toml.DecodeFile(path, &f)
	if err != nil {
		return errs.Wrapf(err, "decode limits file %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return errs.Newf("limits file %s: unknown keys %v", path, undecoded)
	}
	return c.applyLimits(f)
}

func (c *Config) applyLimits(f limitsFile) error {
	for name, v := range f.Maxima {
		counter, err := domain.ParseCounter(name)
		if err != nil {
			return err
		}
		c.Maxima[counter] = v
	}
	if f.Table.MaxRange != nil {
		c.Table.MaxRange = *f.Table.MaxRange
	}
	if f.Table.ScarceAmount != nil {
		c.Table.ScarceAmount = *f.Table.ScarceAmount
	}
	if f.Table.MaxUtilityAmount != nil {
		c.Table.MaxUtilityAmount = *f.Table.MaxUtilityAmount
	}
	if f.Table.UtilityUnit != nil {
		c.Table.UtilityUnit = *f.Table.UtilityUnit
	}
	return nil
}
