package models

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// AdvanceOffsets is the set of "days before" thresholds a series warns
// at. The stored form is a comma-separated list such as "1,2,7"; the
// decoded form is always sorted ascending and deduplicated.
type AdvanceOffsets []int

// ParseAdvanceOffsets decodes the stored comma-separated form. Blank
// entries are skipped; a non-numeric entry is an error.
func ParseAdvanceOffsets(raw string) (AdvanceOffsets, error) {
	var offsets AdvanceOffsets
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		day, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid advance offset %q", part)
		}
		offsets = append(offsets, day)
	}
	return offsets.Normalize(), nil
}

// Normalize returns the offsets sorted ascending with duplicates removed.
func (o AdvanceOffsets) Normalize() AdvanceOffsets {
	if len(o) == 0 {
		return nil
	}
	out := make(AdvanceOffsets, len(o))
	copy(out, o)
	sort.Ints(out)
	dedup := out[:1]
	for _, day := range out[1:] {
		if day != dedup[len(dedup)-1] {
			dedup = append(dedup, day)
		}
	}
	return dedup
}

// String encodes the offsets back to the stored comma-separated form.
func (o AdvanceOffsets) String() string {
	norm := o.Normalize()
	parts := make([]string, len(norm))
	for i, day := range norm {
		parts[i] = strconv.Itoa(day)
	}
	return strings.Join(parts, ",")
}

// ResetFired returns a fired-map covering every offset, all unfired.
func (o AdvanceOffsets) ResetFired() AdvanceFired {
	fired := make(AdvanceFired, len(o))
	for _, day := range o.Normalize() {
		fired[day] = false
	}
	return fired
}

// AdvanceFired records which advance thresholds have already fired for
// the current occurrence. The stored form is a JSON object with
// integer-string keys, e.g. {"1":true,"7":false}.
type AdvanceFired map[int]bool

// ParseAdvanceFired decodes the stored JSON form. Unreadable state
// decodes to an empty map so a corrupt row degrades to "nothing fired
// yet" instead of poisoning the sweep.
func ParseAdvanceFired(raw string) AdvanceFired {
	if raw == "" {
		return AdvanceFired{}
	}
	var fired AdvanceFired
	if err := json.Unmarshal([]byte(raw), &fired); err != nil {
		return AdvanceFired{}
	}
	return fired
}

// String encodes the fired-map back to the stored JSON form.
func (f AdvanceFired) String() string {
	if f == nil {
		return "{}"
	}
	data, err := json.Marshal(f)
	if err != nil {
		return "{}"
	}
	return string(data)
}

// Backfill adds any offsets missing from the map as unfired. Offsets
// added to a series after creation pick up reminder state this way.
func (f AdvanceFired) Backfill(offsets AdvanceOffsets) {
	for _, day := range offsets {
		if _, ok := f[day]; !ok {
			f[day] = false
		}
	}
}
