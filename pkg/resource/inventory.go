// Package resource describes the functional units available to a schedule.
//
// An [Inventory] maps each resource type to the number of identical units
// the datapath provides. It is the only resource input the scheduler needs.
//
// A [Library] is the richer, file-backed description used by the CLI and
// the benchmark runner: per resource class it records the unit count, the
// execution delay, power coefficients and the opcodes the class implements.
// Libraries are stored as TOML; the five-column text format of older
// experiment setups is still readable through [ReadLegacyLibrary].
package resource

import (
	"fmt"
	"maps"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/matzehuels/hlsched/pkg/dag"
	"github.com/matzehuels/hlsched/pkg/errors"
)

// Inventory maps a resource type to its number of available units.
//
// An Inventory is read-only during a scheduling run. A type missing from
// the map is undeclared: operations of that type can never be scheduled,
// and [Inventory.Declared] is the way to check for it.
type Inventory map[dag.ResourceType]int

// Declared reports whether t has an entry in the inventory.
func (inv Inventory) Declared(t dag.ResourceType) bool {
	_, ok := inv[t]
	return ok
}

// Units returns the unit count for t, or 0 if t is undeclared.
func (inv Inventory) Units(t dag.ResourceType) int { return inv[t] }

// Clone returns an independent copy of the inventory.
func (inv Inventory) Clone() Inventory {
	if inv == nil {
		return Inventory{}
	}
	return maps.Clone(inv)
}

// Canonical returns a copy with every type name normalized by
// [dag.ParseResourceType]. Counts of keys that collapse to the same type
// are summed.
func (inv Inventory) Canonical() Inventory {
	out := make(Inventory, len(inv))
	for t, n := range inv {
		out[dag.ParseResourceType(string(t))] += n
	}
	return out
}

// Types returns the declared types in sorted order.
func (inv Inventory) Types() []dag.ResourceType {
	return slices.Sorted(maps.Keys(inv))
}

// Total returns the sum of all unit counts.
func (inv Inventory) Total() int {
	total := 0
	for _, n := range inv {
		total += n
	}
	return total
}

// Validate checks that every type name is usable and every count is positive.
func (inv Inventory) Validate() error {
	for _, t := range inv.Types() {
		if err := errors.ValidateResourceType(string(t)); err != nil {
			return err
		}
		if err := errors.ValidateUnits(string(t), inv[t]); err != nil {
			return err
		}
	}
	return nil
}

// Scale multiplies every unit count by factor, rounding up and never going
// below one unit. The benchmark runner uses it to sweep resource pressure.
// Products within 1e-9 of an integer are not rounded up, so 10 units at
// 0.7 stay 7.
func (inv Inventory) Scale(factor float64) Inventory {
	out := make(Inventory, len(inv))
	for t, n := range inv {
		scaled := int(math.Ceil(float64(n)*factor - 1e-9))
		out[t] = max(scaled, 1)
	}
	return out
}

// String renders the inventory as "ALU=2,MUL=1" in sorted type order.
func (inv Inventory) String() string {
	parts := make([]string, 0, len(inv))
	for _, t := range inv.Types() {
		parts = append(parts, fmt.Sprintf("%s=%d", t, inv[t]))
	}
	return strings.Join(parts, ",")
}

// ParseInventory parses the "ALU=2,MUL=1" form used on the command line.
// Type keys are case-insensitive. An empty string yields an empty inventory.
func ParseInventory(s string) (Inventory, error) {
	inv := Inventory{}
	s = strings.TrimSpace(s)
	if s == "" {
		return inv, nil
	}
	for _, part := range strings.Split(s, ",") {
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			return nil, errors.New(errors.ErrCodeInvalidResource, "resource %q: expected TYPE=COUNT", strings.TrimSpace(part))
		}
		t := dag.ParseResourceType(key)
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidResource, err, "resource %s: invalid count %q", t, value)
		}
		inv[t] = n
	}
	if err := inv.Validate(); err != nil {
		return nil, err
	}
	return inv, nil
}
