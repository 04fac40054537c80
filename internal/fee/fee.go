// Package fee implements the volume tiered protocol fee schedule.
package fee

import (
	"sort"

	"clob/internal/fixed"
	"clob/pkg/exception"
)

// Tier is one row of the schedule. An account whose epoch volume is at
// least VolumeThreshold pays MakerBps/TakerBps.
type Tier struct {
	MakerBps        uint64 `json:"makerFee" yaml:"maker_bps"`
	TakerBps        uint64 `json:"takerFee" yaml:"taker_bps"`
	VolumeThreshold uint64 `json:"volumeThreshold" yaml:"volume_threshold"`
}

// Schedule is a validated, strictly ascending tier list.
type Schedule struct {
	tiers []Tier
}

// Default charges nothing.
func Default() Schedule {
	return Schedule{tiers: []Tier{{}}}
}

// New validates tiers and returns a schedule owning a copy of them.
func New(tiers []Tier) (Schedule, error) {
	if err := Validate(tiers); err != nil {
		return Schedule{}, err
	}
	cp := make([]Tier, len(tiers))
	copy(cp, tiers)
	return Schedule{tiers: cp}, nil
}

// Validate reports ErrInvalidFeeSchedule when the list is empty, does not
// start at threshold 0, is not strictly ascending or carries a rate above
// 100%.
func Validate(tiers []Tier) error {
	if len(tiers) == 0 || tiers[0].VolumeThreshold != 0 {
		return exception.ErrInvalidFeeSchedule
	}
	for i, t := range tiers {
		if t.MakerBps > fixed.BpsDenominator || t.TakerBps > fixed.BpsDenominator {
			return exception.ErrInvalidFeeSchedule
		}
		if i > 0 && t.VolumeThreshold <= tiers[i-1].VolumeThreshold {
			return exception.ErrInvalidFeeSchedule
		}
	}
	return nil
}

// Lookup returns the maker and taker rates of the highest tier whose
// threshold does not exceed volume.
func (s Schedule) Lookup(volume uint64) (maker, taker uint64) {
	if len(s.tiers) == 0 {
		return 0, 0
	}
	i := sort.Search(len(s.tiers), func(i int) bool {
		return s.tiers[i].VolumeThreshold > volume
	}) - 1
	if i < 0 {
		i = 0
	}
	return s.tiers[i].MakerBps, s.tiers[i].TakerBps
}

// MaxBps is the highest rate any account can be charged.
func (s Schedule) MaxBps() uint64 {
	var m uint64
	for _, t := range s.tiers {
		m = max(m, t.MakerBps, t.TakerBps)
	}
	return m
}

// Tiers returns a copy of the schedule.
func (s Schedule) Tiers() []Tier {
	cp := make([]Tier, len(s.tiers))
	copy(cp, s.tiers)
	return cp
}

// Len returns the number of tiers.
func (s Schedule) Len() int {
	return len(s.tiers)
}
