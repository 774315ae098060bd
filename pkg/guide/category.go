package guide

import "strings"

// Category identifies one step in the guided configuration sequence.
// All lookups are keyed by the canonical (lowercase, no separators) form;
// use ParseCategory to get there from user or config input.
type Category string

const (
	CategoryPowerSource    Category = "powersource"
	CategoryFeeder         Category = "feeder"
	CategoryCooler         Category = "cooler"
	CategoryInterconnector Category = "interconnector"
	CategoryTorch          Category = "torch"
	CategoryAccessory      Category = "accessory"
	CategoryRemoteControl  Category = "remotecontrol"
	CategoryFinalize       Category = "finalize"
)

var displayNames = map[Category]string{
	CategoryPowerSource:    "power source",
	CategoryFeeder:         "wire feeder",
	CategoryCooler:         "cooler",
	CategoryInterconnector: "interconnector",
	CategoryTorch:          "torch",
	CategoryAccessory:      "accessory",
	CategoryRemoteControl:  "remote control",
	CategoryFinalize:       "summary",
}

// aliases maps common spellings from extraction output and config files
// to canonical categories.
var aliases = map[string]Category{
	"powersource":     CategoryPowerSource,
	"power_source":    CategoryPowerSource,
	"power-source":    CategoryPowerSource,
	"power source":    CategoryPowerSource,
	"machine":         CategoryPowerSource,
	"feeder":          CategoryFeeder,
	"wirefeeder":      CategoryFeeder,
	"wire_feeder":     CategoryFeeder,
	"wire feeder":     CategoryFeeder,
	"cooler":          CategoryCooler,
	"coolingunit":     CategoryCooler,
	"cooling_unit":    CategoryCooler,
	"interconnector":  CategoryInterconnector,
	"interconnection": CategoryInterconnector,
	"interconn":       CategoryInterconnector,
	"torch":           CategoryTorch,
	"gun":             CategoryTorch,
	"accessory":       CategoryAccessory,
	"accessories":     CategoryAccessory,
	"remotecontrol":   CategoryRemoteControl,
	"remote_control":  CategoryRemoteControl,
	"remote control":  CategoryRemoteControl,
	"remote":          CategoryRemoteControl,
	"finalize":        CategoryFinalize,
	"summary":         CategoryFinalize,
}

// Canon normalizes a raw category name. This is the single place casing
// and separators are dealt with; everything downstream assumes canonical
// input.
func Canon(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// ParseCategory resolves a raw name to a known category. Returns false for
// names that match nothing, so callers can decide between fail-open and
// rejection.
func ParseCategory(raw string) (Category, bool) {
	c, ok := aliases[Canon(raw)]
	return c, ok
}

// Display returns the human-readable name used in skip reasons and logs.
func (c Category) Display() string {
	if name, ok := displayNames[c]; ok {
		return name
	}
	return string(c)
}

func (c Category) String() string {
	return string(c)
}
