package sequence

import (
	"errors"
	"testing"

	"welding-recommender-be/pkg/guide"
)

func TestNextWalksTheSequence(t *testing.T) {
	m := NewMachine(guide.DefaultRulebook())
	sel := guide.NewSelections()

	next, err := m.Next(guide.CategoryPowerSource, sel, nil, nil)
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if next != guide.CategoryFeeder {
		t.Errorf("next = %q, want feeder", next)
	}
}

func TestNextSkipsSelectedAndInapplicable(t *testing.T) {
	m := NewMachine(guide.DefaultRulebook())

	sel := guide.NewSelections()
	sel.Select(guide.CategoryFeeder, guide.SelectedItem{ID: "fd-1"}, false)
	applicability := guide.ApplicabilityMap{guide.CategoryCooler: false}

	// Feeder already selected, cooler inapplicable: land on interconnector.
	next, err := m.Next(guide.CategoryPowerSource, sel, applicability, nil)
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if next != guide.CategoryInterconnector {
		t.Errorf("next = %q, want interconnector", next)
	}
}

func TestNextMultiSelectIsStickyUntilDone(t *testing.T) {
	m := NewMachine(guide.DefaultRulebook())

	sel := guide.NewSelections()
	sel.Select(guide.CategoryAccessory, guide.SelectedItem{ID: "acc-1"}, true)

	// A selection alone does not move past a multi-select category.
	next, err := m.Next(guide.CategoryTorch, sel, nil, nil)
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if next != guide.CategoryAccessory {
		t.Errorf("next = %q, want accessory", next)
	}

	done := map[guide.Category]bool{guide.CategoryAccessory: true}
	next, err = m.Next(guide.CategoryTorch, sel, nil, done)
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if next != guide.CategoryRemoteControl {
		t.Errorf("next = %q, want remotecontrol", next)
	}
}

func TestNextFromLastCategoryIsTerminal(t *testing.T) {
	m := NewMachine(guide.DefaultRulebook())

	next, err := m.Next(guide.CategoryRemoteControl, guide.NewSelections(), nil, nil)
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if next != guide.CategoryFinalize {
		t.Errorf("next = %q, want finalize", next)
	}
}

func TestNextRejectsUnknownCurrent(t *testing.T) {
	m := NewMachine(guide.DefaultRulebook())

	_, err := m.Next(guide.Category("banana"), guide.NewSelections(), nil, nil)
	if err == nil {
		t.Fatal("expected error for unknown current category")
	}
	if !errors.Is(err, ErrCorruptedState) {
		t.Errorf("error = %v, want ErrCorruptedState", err)
	}
}

func TestFirstPending(t *testing.T) {
	m := NewMachine(guide.DefaultRulebook())

	sel := guide.NewSelections()
	sel.Select(guide.CategoryPowerSource, guide.SelectedItem{ID: "ps-1"}, false)
	sel.Select(guide.CategoryFeeder, guide.SelectedItem{ID: "fd-1"}, false)

	got := m.FirstPending(sel, nil, nil)
	if got != guide.CategoryCooler {
		t.Errorf("FirstPending = %q, want cooler", got)
	}

	// Everything selected or done: lands on the terminal step.
	for _, c := range []guide.Category{guide.CategoryCooler, guide.CategoryInterconnector, guide.CategoryTorch, guide.CategoryRemoteControl} {
		sel.Select(c, guide.SelectedItem{ID: "x"}, false)
	}
	done := map[guide.Category]bool{guide.CategoryAccessory: true}
	got = m.FirstPending(sel, nil, done)
	if got != guide.CategoryFinalize {
		t.Errorf("FirstPending = %q, want finalize", got)
	}
}
