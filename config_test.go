package xstream

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bus.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfigFile(t, `
topics:
  - name: orders
    partition_count: 4
  - name: payments
    partition_count: 2
consumer_groups:
  - group_id: billing
    topic_name: orders
    consumer_count: 2
    queue_capacity: 4096
  - group_id: audit
    topic_name: payments
    consumer_count: 1
back_pressure:
  strategy: yielding_spin
  spin_yield_threshold: 500
  block_sleep_duration: 20us
  timeout: 250ms
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	require.Len(t, cfg.Topics, 2)
	assert.Equal(t, "orders", cfg.Topics[0].Name)
	assert.Equal(t, 4, cfg.Topics[0].PartitionCount)

	require.Len(t, cfg.ConsumerGroups, 2)
	assert.Equal(t, "billing", cfg.ConsumerGroups[0].GroupID)
	assert.Equal(t, 4096, cfg.ConsumerGroups[0].QueueCapacity)
	assert.Equal(t, 0, cfg.ConsumerGroups[1].QueueCapacity, "unset capacity defaults later")

	assert.Equal(t, BackPressureYieldingSpin, cfg.BackPressure.Strategy)
	assert.Equal(t, 500, cfg.BackPressure.SpinYieldThreshold)
	assert.Equal(t, 20*time.Microsecond, cfg.BackPressure.BlockSleep)
	assert.Equal(t, 250*time.Millisecond, cfg.BackPressure.Timeout)

	bus, err := New(cfg)
	require.NoError(t, err)
	assert.Len(t, bus.ConsumersByGroupID()["billing"], 2)
}

func TestLoadConfig_DefaultBackPressure(t *testing.T) {
	path := writeConfigFile(t, `
topics:
  - name: t
    partition_count: 1
consumer_groups:
  - group_id: g
    topic_name: t
    consumer_count: 1
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, BackPressureDropNewest, cfg.BackPressure.Strategy)

	_, err = New(cfg)
	require.NoError(t, err)
}

func TestLoadConfig_UnknownStrategy(t *testing.T) {
	path := writeConfigFile(t, `
topics:
  - name: t
    partition_count: 1
back_pressure:
  strategy: drop_oldest
`)

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "drop_oldest")
}

func TestLoadConfig_BadDuration(t *testing.T) {
	path := writeConfigFile(t, `
topics:
  - name: t
    partition_count: 1
back_pressure:
  strategy: spin
  timeout: fast
`)

	_, err := LoadConfig(path)
	require.Error(t, err)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
	}{
		{"no topics", Config{}},
		{"empty topic name", Config{Topics: []TopicConfig{{PartitionCount: 1}}}},
		{"zero partitions", Config{Topics: []TopicConfig{{Name: "t"}}}},
		{
			"empty group id",
			Config{
				Topics:         []TopicConfig{{Name: "t", PartitionCount: 1}},
				ConsumerGroups: []ConsumerGroupConfig{{TopicName: "t", ConsumerCount: 1}},
			},
		},
		{
			"zero consumers",
			Config{
				Topics:         []TopicConfig{{Name: "t", PartitionCount: 1}},
				ConsumerGroups: []ConsumerGroupConfig{{GroupID: "g", TopicName: "t"}},
			},
		},
		{
			"negative capacity",
			Config{
				Topics: []TopicConfig{{Name: "t", PartitionCount: 1}},
				ConsumerGroups: []ConsumerGroupConfig{
					{GroupID: "g", TopicName: "t", ConsumerCount: 1, QueueCapacity: -1},
				},
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Error(t, tc.cfg.validate())
		})
	}
}
