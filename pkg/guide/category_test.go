package guide

import (
	"testing"
)

func TestParseCategory(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		want   Category
		wantOk bool
	}{
		{name: "canonical", raw: "powersource", want: CategoryPowerSource, wantOk: true},
		{name: "upper case", raw: "POWERSOURCE", want: CategoryPowerSource, wantOk: true},
		{name: "mixed case with space", raw: "Power Source", want: CategoryPowerSource, wantOk: true},
		{name: "underscore alias", raw: "power_source", want: CategoryPowerSource, wantOk: true},
		{name: "surrounding whitespace", raw: "  torch  ", want: CategoryTorch, wantOk: true},
		{name: "extraction synonym", raw: "gun", want: CategoryTorch, wantOk: true},
		{name: "plural accessory", raw: "Accessories", want: CategoryAccessory, wantOk: true},
		{name: "remote shorthand", raw: "remote", want: CategoryRemoteControl, wantOk: true},
		{name: "unknown", raw: "flux capacitor", wantOk: false},
		{name: "empty", raw: "", wantOk: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseCategory(tt.raw)
			if ok != tt.wantOk {
				t.Fatalf("ParseCategory(%q) ok = %v, want %v", tt.raw, ok, tt.wantOk)
			}
			if ok && got != tt.want {
				t.Errorf("ParseCategory(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestCanon(t *testing.T) {
	if got := Canon("  WIRE Feeder "); got != "wire feeder" {
		t.Errorf("Canon = %q, want %q", got, "wire feeder")
	}
}

func TestDisplayFallsBackToRawName(t *testing.T) {
	if got := Category("oddball").Display(); got != "oddball" {
		t.Errorf("Display = %q, want raw name", got)
	}
	if got := CategoryFeeder.Display(); got != "wire feeder" {
		t.Errorf("Display = %q, want %q", got, "wire feeder")
	}
}
