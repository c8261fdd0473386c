package database

import (
	"context"
	"fmt"
	"os"

	yaml "go.yaml.in/yaml/v3"
	"gorm.io/gorm"

	"resort-billing/logger"
	"resort-billing/models"
)

type ruleFile struct {
	Rules []ruleEntry `yaml:"rules"`
}

type ruleEntry struct {
	Type      models.ReminderType `yaml:"type"`
	Days      int                 `yaml:"days"`
	Frequency models.Frequency    `yaml:"frequency"`
	Subject   string              `yaml:"subject"`
	Template  string              `yaml:"template"`
	Enabled   *bool               `yaml:"enabled"`
}

// ParseRules decodes a YAML rule file. Rules keep their file order.
func ParseRules(data []byte) ([]models.ReminderRule, error) {
	var f ruleFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("yaml unmarshal: %w", err)
	}

	rules := make([]models.ReminderRule, 0, len(f.Rules))
	for i, e := range f.Rules {
		if !e.Type.Valid() {
			return nil, fmt.Errorf("rule %d: unknown type %q", i+1, e.Type)
		}
		if e.Frequency == "" {
			e.Frequency = models.FrequencyOnce
		}
		if !e.Frequency.Valid() {
			return nil, fmt.Errorf("rule %d: unknown frequency %q", i+1, e.Frequency)
		}
		if e.Type != models.ReminderOn && e.Days < 1 {
			return nil, fmt.Errorf("rule %d: %s rules need days >= 1", i+1, e.Type)
		}
		enabled := e.Enabled == nil || *e.Enabled
		rules = append(rules, models.ReminderRule{
			ReminderType: e.Type,
			Days:         e.Days,
			Frequency:    e.Frequency,
			Subject:      e.Subject,
			Template:     e.Template,
			Enabled:      enabled,
		})
	}
	return rules, nil
}

// SeedReminderRules inserts the rules from path when the rule table is empty.
// It returns the number of rules created.
func SeedReminderRules(ctx context.Context, db *gorm.DB, path string) (int, error) {
	log := logger.WithComponent("database")

	var count int64
	if err := db.WithContext(ctx).Model(&models.ReminderRule{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count reminder rules: %w", err)
	}
	if count > 0 {
		log.Debug().Int64("existing", count).Msg("reminder rules present, seeding skipped")
		return 0, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read rule file: %w", err)
	}
	rules, err := ParseRules(data)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}
	if len(rules) == 0 {
		return 0, nil
	}

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// one by one so ids follow file order
		for i := range rules {
			if err := tx.Create(&rules[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("seed reminder rules: %w", err)
	}
	log.Info().Int("rules", len(rules)).Str("file", path).Msg("reminder rules seeded")
	return len(rules), nil
}
