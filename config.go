/*
 * Copyright 2024 Dgraph Labs, Inc. and Contributors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package scheduler

import (
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Config holds every tunable named in spec §6. The zero value is not valid;
// use DefaultConfig or ParseConfig. SplitRatio is parsed but not passed on
// by New: the interval tree always uses interval.SplitRatio (1.5).
type Config struct {
	IntervalSize    uint32
	SplitRatio      float64
	RebuildMin      int
	BudgetBase      uint32
	BudgetPerCover  uint32
	Alpha           float64
	PVertical       float64
	PExploration    float64
	TWarm           time.Duration
	DynamicMode     bool
	VerticalEnabled bool
	RecycleBudget   uint32
}

// defaultFlags mirrors the defaults spec §6 enumerates, expressed the way
// ristretto's z.SuperFlag expects a flag string: semicolon-separated
// key=value pairs.
const defaultFlags = `interval=1024; split-ratio=1.5; rebuild-min=16; ` +
	`budget-base=4; budget-per-cover=2; alpha=0.9; p-vertical=0.5; ` +
	`p-exploration=0.2; warm=30s; dynamic-mode=true; vertical-enabled=false; ` +
	`recycle-budget=100`

// superFlag is z.SuperFlag's parsing (dgraph-io/ristretto/z/flags.go)
// adapted to return errors instead of calling log.Fatal: this core must
// never terminate the host fuzzer process over a malformed config string
// (spec §7 names allocation failure, not config parsing, as the one fatal
// error kind).
type superFlag struct {
	m map[string]string
}

func parseFlag(flag string) map[string]string {
	kvm := make(map[string]string)
	for _, kv := range strings.Split(flag, ";") {
		if strings.TrimSpace(kv) == "" {
			continue
		}
		splits := strings.SplitN(kv, "=", 2)
		k := strings.ToLower(strings.TrimSpace(splits[0]))
		k = strings.ReplaceAll(k, "_", "-")
		v := ""
		if len(splits) == 2 {
			v = strings.TrimSpace(splits[1])
		}
		kvm[k] = v
	}
	return kvm
}

func (sf *superFlag) getFloat64(opt string) (float64, error) {
	val := sf.m[opt]
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "scheduler: parsing %q as float64 for key %q", val, opt)
	}
	return f, nil
}

func (sf *superFlag) getUint32(opt string) (uint32, error) {
	val := sf.m[opt]
	u, err := strconv.ParseUint(val, 0, 32)
	if err != nil {
		return 0, errors.Wrapf(err, "scheduler: parsing %q as uint32 for key %q", val, opt)
	}
	return uint32(u), nil
}

func (sf *superFlag) getInt(opt string) (int, error) {
	val := sf.m[opt]
	i, err := strconv.Atoi(val)
	if err != nil {
		return 0, errors.Wrapf(err, "scheduler: parsing %q as int for key %q", val, opt)
	}
	return i, nil
}

func (sf *superFlag) getBool(opt string) (bool, error) {
	val := sf.m[opt]
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, errors.Wrapf(err, "scheduler: parsing %q as bool for key %q", val, opt)
	}
	return b, nil
}

func (sf *superFlag) getDuration(opt string) (time.Duration, error) {
	val := sf.m[opt]
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, errors.Wrapf(err, "scheduler: parsing %q as duration for key %q", val, opt)
	}
	return d, nil
}

// knownConfigKeys enumerates the keys ParseConfig accepts; anything else is
// rejected, the same invalid-options check z.SuperFlag.MergeAndCheckDefault
// performs (by panicking) but surfaced as an error here instead.
var knownConfigKeys = map[string]bool{
	"interval": true, "split-ratio": true, "rebuild-min": true,
	"budget-base": true, "budget-per-cover": true, "alpha": true,
	"p-vertical": true, "p-exploration": true, "warm": true,
	"dynamic-mode": true, "vertical-enabled": true, "recycle-budget": true,
}

// DefaultConfig returns the spec §6 defaults.
func DefaultConfig() Config {
	cfg, err := ParseConfig("")
	if err != nil {
		panic(errors.Wrap(err, "scheduler: default config failed to parse, this is a bug"))
	}
	return cfg
}

// ParseConfig parses a semicolon-separated key=value flag string in the
// style of ristretto's z.SuperFlag, merges it over the spec §6 defaults,
// and validates the result. An empty string yields DefaultConfig().
func ParseConfig(flag string) (Config, error) {
	merged := parseFlag(defaultFlags)
	for k, v := range parseFlag(flag) {
		merged[k] = v
	}
	for k := range merged {
		if !knownConfigKeys[k] {
			return Config{}, errors.Errorf("scheduler: unknown config key %q", k)
		}
	}
	sf := &superFlag{m: merged}

	var cfg Config
	var err error
	if cfg.IntervalSize, err = sf.getUint32("interval"); err != nil {
		return Config{}, err
	}
	if cfg.SplitRatio, err = sf.getFloat64("split-ratio"); err != nil {
		return Config{}, err
	}
	if cfg.RebuildMin, err = sf.getInt("rebuild-min"); err != nil {
		return Config{}, err
	}
	if cfg.BudgetBase, err = sf.getUint32("budget-base"); err != nil {
		return Config{}, err
	}
	if cfg.BudgetPerCover, err = sf.getUint32("budget-per-cover"); err != nil {
		return Config{}, err
	}
	if cfg.Alpha, err = sf.getFloat64("alpha"); err != nil {
		return Config{}, err
	}
	if cfg.PVertical, err = sf.getFloat64("p-vertical"); err != nil {
		return Config{}, err
	}
	if cfg.PExploration, err = sf.getFloat64("p-exploration"); err != nil {
		return Config{}, err
	}
	if cfg.TWarm, err = sf.getDuration("warm"); err != nil {
		return Config{}, err
	}
	if cfg.DynamicMode, err = sf.getBool("dynamic-mode"); err != nil {
		return Config{}, err
	}
	if cfg.VerticalEnabled, err = sf.getBool("vertical-enabled"); err != nil {
		return Config{}, err
	}
	if cfg.RecycleBudget, err = sf.getUint32("recycle-budget"); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the invariants ParseConfig's callers (or anyone building
// a Config by hand) must satisfy.
func (c Config) Validate() error {
	if c.IntervalSize == 0 || c.IntervalSize&(c.IntervalSize-1) != 0 {
		return errors.Errorf("scheduler: interval must be a power of two, got %d", c.IntervalSize)
	}
	if c.Alpha <= 0 || c.Alpha >= 1 {
		return errors.Errorf("scheduler: alpha must be in (0,1), got %f", c.Alpha)
	}
	if c.PVertical < 0 || c.PExploration < 0 || c.PVertical+c.PExploration > 1 {
		return errors.Errorf("scheduler: p-vertical + p-exploration must be within [0,1], got %f + %f",
			c.PVertical, c.PExploration)
	}
	if c.RecycleBudget == 0 {
		return errors.New("scheduler: recycle-budget must be nonzero")
	}
	return nil
}
