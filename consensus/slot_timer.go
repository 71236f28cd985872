package consensus

import "time"

// SlotClockConfig configures a SlotClock (§4.1).
type SlotClockConfig struct {
	GenesisTime uint64 // unix timestamp of chain genesis
	Delta       uint64 // slot half-duration in seconds; slot length is 2*Delta
	EpochLength uint64 // slots per epoch
}

// SlotClock translates wall-clock time into slot and epoch indices
// relative to genesis, per §4.1. All methods are pure computations over
// config and the wall clock (or, for the *At variants, a caller-supplied
// timestamp); SlotClock holds no mutable state and needs no lock.
type SlotClock struct {
	genesisTime uint64
	delta       uint64
	epochLength uint64
}

// NewSlotClock creates a SlotClock from the given config. Panics if
// Delta or EpochLength is zero, the same constructor-time validation
// crypto.NewMerkleTree performs.
func NewSlotClock(config SlotClockConfig) *SlotClock {
	if config.Delta == 0 {
		panic("consensus: Delta must be > 0")
	}
	if config.EpochLength == 0 {
		panic("consensus: EpochLength must be > 0")
	}
	return &SlotClock{
		genesisTime: config.GenesisTime,
		delta:       config.Delta,
		epochLength: config.EpochLength,
	}
}

// NewSlotClockFromConfig builds a SlotClock from a Config and a genesis
// timestamp, the constructor ValidatorState actually uses.
func NewSlotClockFromConfig(cfg Config, genesisTime uint64) *SlotClock {
	return NewSlotClock(SlotClockConfig{
		GenesisTime: genesisTime,
		Delta:       cfg.Delta,
		EpochLength: cfg.EpochLength,
	})
}

// slotLength returns the duration of one slot: 2*Delta seconds.
func (sc *SlotClock) slotLength() uint64 {
	return 2 * sc.delta
}

// CurrentSlot returns current_slot() = (now - genesis_ts) / (2*Delta),
// saturating at zero if now precedes genesis (clock skew, §4.1).
func (sc *SlotClock) CurrentSlot() uint64 {
	return sc.SlotAt(uint64(time.Now().Unix()))
}

// SlotAt computes the slot containing the given unix timestamp.
func (sc *SlotClock) SlotAt(unixTime uint64) uint64 {
	if unixTime < sc.genesisTime {
		return 0
	}
	return (unixTime - sc.genesisTime) / sc.slotLength()
}

// SlotEpoch returns slot_epoch(slot) = slot / EPOCH_LENGTH.
func (sc *SlotClock) SlotEpoch(slot uint64) uint64 {
	return slot / sc.epochLength
}

// RelativeSlot returns relative_slot(slot) = slot mod EPOCH_LENGTH.
func (sc *SlotClock) RelativeSlot(slot uint64) uint64 {
	return slot % sc.epochLength
}

// CurrentEpoch returns the epoch containing CurrentSlot().
func (sc *SlotClock) CurrentEpoch() uint64 {
	return sc.SlotEpoch(sc.CurrentSlot())
}

// SlotStartTime returns the unix timestamp at which the given slot
// begins.
func (sc *SlotClock) SlotStartTime(slot uint64) uint64 {
	return sc.genesisTime + slot*sc.slotLength()
}

// NextNSlotStart returns the number of seconds until the start of slot
// current_slot+n, saturating at zero if that start has already passed.
// Panics if n == 0, per §4.1 ("n>=1 required").
func (sc *SlotClock) NextNSlotStart(n uint64) uint64 {
	if n == 0 {
		panic("consensus: NextNSlotStart requires n >= 1")
	}
	target := sc.SlotStartTime(sc.CurrentSlot() + n)
	now := uint64(time.Now().Unix())
	if target <= now {
		return 0
	}
	return target - now
}

// SlotsToNextNEpoch returns
// (n-1)*EPOCH_LENGTH + (EPOCH_LENGTH - relative_slot(current_slot)),
// saturating at zero, per §4.1. Panics if n == 0.
func (sc *SlotClock) SlotsToNextNEpoch(n uint64) uint64 {
	if n == 0 {
		panic("consensus: SlotsToNextNEpoch requires n >= 1")
	}
	rel := sc.RelativeSlot(sc.CurrentSlot())
	remaining := sc.epochLength - rel
	total := (n-1)*sc.epochLength + remaining
	return total
}

// IsFirstSlotOfEpoch returns true if slot is an epoch boundary.
func (sc *SlotClock) IsFirstSlotOfEpoch(slot uint64) bool {
	return sc.RelativeSlot(slot) == 0
}

// GenesisTimeValue returns the configured genesis timestamp.
func (sc *SlotClock) GenesisTimeValue() uint64 {
	return sc.genesisTime
}
