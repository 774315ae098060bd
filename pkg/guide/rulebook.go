package guide

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// CategoryRule describes how one category behaves inside the sequence.
type CategoryRule struct {
	Category              Category
	Ordinal               int
	Mandatory             bool
	MultiSelect           bool
	RequiresCompatibility bool
	Prerequisites         []Category
	ConditionalAccessory  bool
}

// Rulebook is the immutable category configuration loaded once at startup.
// It owns the ordered sequence and the per-category rules; lookups go
// through the canonical form so mixed-case names from config or extraction
// output always resolve to the same rule.
type Rulebook struct {
	sequence []Category
	rules    map[Category]CategoryRule
}

// ruleFile is the YAML shape of an external rulebook override.
type ruleFile struct {
	Categories []struct {
		Name                  string   `yaml:"name"`
		Mandatory             bool     `yaml:"mandatory"`
		MultiSelect           bool     `yaml:"multi_select"`
		RequiresCompatibility bool     `yaml:"requires_compatibility"`
		Prerequisites         []string `yaml:"prerequisites"`
		ConditionalAccessory  bool     `yaml:"conditional_accessory"`
	} `yaml:"categories"`
}

// DefaultRulebook returns the built-in welding configuration sequence:
// power source first (mandatory), then the compatibility-driven chain,
// then accessories, ending in the terminal summary step.
func DefaultRulebook() *Rulebook {
	rb := &Rulebook{rules: make(map[Category]CategoryRule)}
	rb.add(CategoryRule{Category: CategoryPowerSource, Mandatory: true})
	rb.add(CategoryRule{
		Category:              CategoryFeeder,
		RequiresCompatibility: true,
		Prerequisites:         []Category{CategoryPowerSource},
	})
	rb.add(CategoryRule{
		Category:              CategoryCooler,
		RequiresCompatibility: true,
		Prerequisites:         []Category{CategoryPowerSource},
	})
	rb.add(CategoryRule{
		Category:              CategoryInterconnector,
		RequiresCompatibility: true,
		Prerequisites:         []Category{CategoryPowerSource, CategoryFeeder},
	})
	rb.add(CategoryRule{
		Category:              CategoryTorch,
		RequiresCompatibility: true,
		Prerequisites:         []Category{CategoryFeeder},
	})
	rb.add(CategoryRule{Category: CategoryAccessory, MultiSelect: true})
	rb.add(CategoryRule{
		Category:              CategoryRemoteControl,
		RequiresCompatibility: true,
		Prerequisites:         []Category{CategoryPowerSource, CategoryFeeder},
		ConditionalAccessory:  true,
	})
	rb.add(CategoryRule{Category: CategoryFinalize})
	return rb
}

// LoadRulebook reads a YAML rulebook from disk. A missing path falls back
// to the defaults; a present but unparseable file is an error, not a
// silent fallback.
func LoadRulebook(path string) (*Rulebook, error) {
	if path == "" {
		return DefaultRulebook(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultRulebook(), nil
		}
		return nil, fmt.Errorf("read rulebook %s: %w", path, err)
	}

	var file ruleFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse rulebook %s: %w", path, err)
	}
	if len(file.Categories) == 0 {
		return nil, fmt.Errorf("rulebook %s defines no categories", path)
	}

	rb := &Rulebook{rules: make(map[Category]CategoryRule)}
	for _, entry := range file.Categories {
		cat, ok := ParseCategory(entry.Name)
		if !ok {
			return nil, fmt.Errorf("rulebook %s: unknown category %q", path, entry.Name)
		}
		rule := CategoryRule{
			Category:              cat,
			Mandatory:             entry.Mandatory,
			MultiSelect:           entry.MultiSelect,
			RequiresCompatibility: entry.RequiresCompatibility,
			ConditionalAccessory:  entry.ConditionalAccessory,
		}
		for _, p := range entry.Prerequisites {
			prereq, ok := ParseCategory(p)
			if !ok {
				return nil, fmt.Errorf("rulebook %s: unknown prerequisite %q for %s", path, p, cat)
			}
			rule.Prerequisites = append(rule.Prerequisites, prereq)
		}
		rb.add(rule)
	}
	if _, ok := rb.rules[CategoryFinalize]; !ok {
		rb.add(CategoryRule{Category: CategoryFinalize})
	}
	return rb, nil
}

func (rb *Rulebook) add(rule CategoryRule) {
	rule.Ordinal = len(rb.sequence)
	rb.sequence = append(rb.sequence, rule.Category)
	rb.rules[rule.Category] = rule
}

// Rule looks up the rule for a category. The lookup normalizes its input,
// so "PowerSource" and "powersource" resolve identically. A false return
// means the category is genuinely unconfigured; callers log it and apply
// the fail-open defaults rather than erroring out.
func (rb *Rulebook) Rule(c Category) (CategoryRule, bool) {
	if rule, ok := rb.rules[c]; ok {
		return rule, true
	}
	if cat, ok := ParseCategory(string(c)); ok {
		rule, found := rb.rules[cat]
		return rule, found
	}
	return CategoryRule{}, false
}

// RuleByName is Rule for raw string input from config or extraction output.
func (rb *Rulebook) RuleByName(name string) (CategoryRule, bool) {
	cat, ok := ParseCategory(name)
	if !ok {
		return CategoryRule{}, false
	}
	return rb.Rule(cat)
}

// Sequence returns the ordered category list, terminal step last.
func (rb *Rulebook) Sequence() []Category {
	out := make([]Category, len(rb.sequence))
	copy(out, rb.sequence)
	return out
}

// IndexOf returns a category's ordinal position in the sequence.
func (rb *Rulebook) IndexOf(c Category) (int, bool) {
	rule, ok := rb.Rule(c)
	if !ok {
		return 0, false
	}
	return rule.Ordinal, true
}

// Root returns the mandatory root category (the first mandatory entry).
func (rb *Rulebook) Root() Category {
	for _, c := range rb.sequence {
		if rb.rules[c].Mandatory {
			return c
		}
	}
	return rb.sequence[0]
}

// Terminal reports whether the category is the end of the sequence.
func (rb *Rulebook) Terminal(c Category) bool {
	return c == CategoryFinalize
}
