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

package vertical

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dafl-go/scheduler/seed"
)

func testConfig() Config {
	return Config{
		IntervalSize:   8,
		BudgetBase:     2,
		BudgetPerCover: 0,
		Alpha:          0.5,
		PVertical:      0.5,
		PExploration:   0.25,
		TWarm:          0,
		DynamicMode:    false,
		Enabled:        true,
	}
}

func TestPushCreatesEntryAndSplicesToFront(t *testing.T) {
	m := NewManager(testConfig(), time.Unix(0, 0))
	s1 := seed.New(1, 10, 0, 0xAAAA, 1, 0, 100, 0)
	m.Push(s1)
	require.Equal(t, 1, m.ActiveCount())

	entry, ok := m.pathMap.Get(0xAAAA)
	require.True(t, ok)
	require.Same(t, s1, entry.Head())
}

func TestPushSecondSeedSamePathAppendsNotSplice(t *testing.T) {
	m := NewManager(testConfig(), time.Unix(0, 0))
	s1 := seed.New(1, 10, 0, 0xAAAA, 1, 0, 100, 0)
	s2 := seed.New(2, 10, 0, 0xAAAA, 2, 0, 100, 0)
	m.Push(s1)
	m.Push(s2)
	require.Equal(t, 1, m.ActiveCount())

	entry, _ := m.pathMap.Get(0xAAAA)
	require.Same(t, s1, entry.Head())
	require.Equal(t, 2, entry.Entries.Size())
}

func TestSelectEntryRetiresAtBudget(t *testing.T) {
	cfg := testConfig()
	cfg.BudgetBase = 2
	m := NewManager(cfg, time.Unix(0, 0))
	s1 := seed.New(1, 10, 0, 0xAAAA, 1, 0, 100, 0)
	m.Push(s1)

	e1 := m.SelectEntry()
	require.NotNil(t, e1)
	require.Equal(t, 1, m.ActiveCount())
	require.Equal(t, 0, m.RetiredCount())

	e2 := m.SelectEntry()
	require.NotNil(t, e2)
	require.Equal(t, 0, m.ActiveCount())
	require.Equal(t, 1, m.RetiredCount())
}

func TestSelectEntryNilWhenEmpty(t *testing.T) {
	m := NewManager(testConfig(), time.Unix(0, 0))
	require.Nil(t, m.SelectEntry())
}

func TestDecayReducesAdjustedScoreMonotonically(t *testing.T) {
	cfg := testConfig()
	cfg.BudgetBase = 5
	cfg.Alpha = 0.5
	m := NewManager(cfg, time.Unix(0, 0))
	s1 := seed.New(1, 10, 0, 0xAAAA, 1, 0, 100, 0)
	m.Push(s1)

	first := s1.ProxScore.Adjusted
	m.SelectEntry()
	require.Less(t, s1.ProxScore.Adjusted, first)
	second := s1.ProxScore.Adjusted
	m.SelectEntry()
	require.Less(t, s1.ProxScore.Adjusted, second)
}

func TestSelectModeHonorsWarmup(t *testing.T) {
	cfg := testConfig()
	cfg.TWarm = time.Hour
	start := time.Unix(1000, 0)
	m := NewManager(cfg, start)
	m.SetNow(func() time.Time { return start.Add(time.Minute) })
	require.Equal(t, Horizontal, m.SelectMode())
}

func TestSelectModeDisabledIsAlwaysHorizontal(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false
	m := NewManager(cfg, time.Unix(0, 0))
	require.Equal(t, Horizontal, m.SelectMode())
}

func TestSetEnabledFalseForcesHorizontalImmediately(t *testing.T) {
	cfg := testConfig()
	m := NewManager(cfg, time.Unix(0, 0))
	m.SeedRandom(1)
	m.SelectMode()
	m.SetEnabled(false)
	require.Equal(t, Horizontal, m.GetMode())
	require.False(t, m.Enabled())
}

func TestSelectModeDistributesAcrossModes(t *testing.T) {
	cfg := testConfig()
	cfg.PVertical = 0.5
	cfg.PExploration = 0.5
	m := NewManager(cfg, time.Unix(0, 0))
	m.SeedRandom(99)
	counts := map[Mode]int{}
	for i := 0; i < 300; i++ {
		counts[m.SelectMode()]++
	}
	require.Greater(t, counts[Vertical], 0)
	require.Greater(t, counts[Exploration], 0)
}

func TestModeStringer(t *testing.T) {
	require.Equal(t, "horizontal", Horizontal.String())
	require.Equal(t, "vertical", Vertical.String())
	require.Equal(t, "exploration", Exploration.String())
}
