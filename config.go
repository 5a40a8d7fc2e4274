package xstream

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// TopicConfig declares one topic.
type TopicConfig struct {
	Name           string `yaml:"name"`
	PartitionCount int    `yaml:"partition_count"`
}

// ConsumerGroupConfig declares one consumer group. A group subscribes to
// exactly one topic.
type ConsumerGroupConfig struct {
	GroupID       string `yaml:"group_id"`
	TopicName     string `yaml:"topic_name"`
	ConsumerCount int    `yaml:"consumer_count"`
	// QueueCapacity is the per-partition ring capacity; rounded up to the
	// next power of two. Zero selects DefaultQueueCapacity.
	QueueCapacity int `yaml:"queue_capacity"`
}

// Config is the one-shot construction record for an EventBus. The topology
// it declares is frozen once New returns.
type Config struct {
	Topics         []TopicConfig         `yaml:"topics"`
	ConsumerGroups []ConsumerGroupConfig `yaml:"consumer_groups"`
	BackPressure   BackPressureConfig    `yaml:"back_pressure"`
}

// LoadConfig reads a Config from a YAML file.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("xstream: read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("xstream: parse config: %w", err)
	}
	return cfg, nil
}

func (c Config) validate() error {
	if len(c.Topics) == 0 {
		return ErrNoTopics
	}
	for _, t := range c.Topics {
		if t.Name == "" {
			return fmt.Errorf("xstream: topic with empty name")
		}
		if t.PartitionCount < 1 {
			return fmt.Errorf("xstream: topic %s: partition count must be >= 1, got %d", t.Name, t.PartitionCount)
		}
	}
	for _, g := range c.ConsumerGroups {
		if g.GroupID == "" {
			return fmt.Errorf("xstream: consumer group with empty id")
		}
		if g.ConsumerCount < 1 {
			return fmt.Errorf("xstream: consumer group %s: consumer count must be >= 1, got %d", g.GroupID, g.ConsumerCount)
		}
		if g.QueueCapacity < 0 {
			return fmt.Errorf("xstream: consumer group %s: %w", g.GroupID, ErrInvalidCapacity{capacity: g.QueueCapacity})
		}
	}
	return nil
}

// UnmarshalYAML decodes the back-pressure block, accepting strategy names
// and Go duration strings ("10us", "1s").
func (c *BackPressureConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Strategy           string `yaml:"strategy"`
		SpinYieldThreshold int    `yaml:"spin_yield_threshold"`
		BlockSleepDuration string `yaml:"block_sleep_duration"`
		Timeout            string `yaml:"timeout"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}

	strategy, err := ParseBackPressureStrategy(raw.Strategy)
	if err != nil {
		return err
	}
	c.Strategy = strategy
	c.SpinYieldThreshold = raw.SpinYieldThreshold

	parse := func(field, s string) (time.Duration, error) {
		if s == "" {
			return 0, nil
		}
		d, err := time.ParseDuration(s)
		if err != nil {
			return 0, fmt.Errorf("xstream: back_pressure.%s: %w", field, err)
		}
		return d, nil
	}
	if c.BlockSleep, err = parse("block_sleep_duration", raw.BlockSleepDuration); err != nil {
		return err
	}
	if c.Timeout, err = parse("timeout", raw.Timeout); err != nil {
		return err
	}
	return nil
}
