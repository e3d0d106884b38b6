// Copyright 2026 The robinhood Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package robinhood implements an open-addressing hash table mapping binary
// keys to values, using robin hood displacement over a double-hashing probe
// sequence. See https://en.wikipedia.org/wiki/Hash_table#Robin_Hood_hashing
// and Celis' original thesis: https://cs.uwaterloo.ca/research/tr/1986/CS-86-14.pdf.
//
// # Probing
//
// The table is a flat array of slots whose length is always prime. A key
// with hash h probes the sequence
//
//	idx(i) = (h + i*step) mod size     i = 1, 2, 3, ...
//	step   = stepPrime - (h mod stepPrime)
//
// where stepPrime is the largest prime strictly below the table size. Both
// moduli being prime keeps the step non-zero and co-prime with the table
// size, so the sequence enumerates every slot without short cycles and
// without the clustering that a fixed stride produces.
//
// # Robin hood displacement
//
// Insertion walks the probe sequence carrying a candidate record and counts
// the steps taken in the candidate's probepos. When the candidate reaches a
// slot whose resident has probed fewer times than the candidate (or an equal
// number, with the candidate's hash numerically smaller), the two swap: the
// candidate takes the slot and the evicted resident continues probing along
// its own sequence, keeping its accumulated probepos. Taking from the
// probe-rich to give to the probe-poor bounds the variance of probe
// distances across the table.
//
// # Statistical search
//
// Every entry's probepos is summed into the table's totalWeight, so the
// average probe distance of the live entries is always available in O(1).
// Lookups start at that average rather than at probe distance 1 and walk
// outward in both directions at once: upward toward maxProbe, downward
// toward 1. The upward walk terminates early on a never-occupied slot,
// since robin hood insertion never leaves a virgin gap inside the occupied
// prefix of any key's probe chain. Deletion leaves a tombstone rather than
// clearing the slot so the downward walk (and future chain-integrity checks
// during slot reuse) keep working.
//
// # Ownership
//
// The table never copies key bytes: it stores the caller's slice and the
// caller must not mutate the bytes behind a live key. Values are held by
// value. FetchKey returns the stored slice, which makes the table usable for
// interning.
//
// A Table is NOT goroutine-safe.
package robinhood

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
)

const (
	debug = false

	defaultTableSize     = 547
	defaultMaxLoadFactor = 0.95
	growthScalar         = 2.5

	// Sizes below this have no room for a sensible step prime.
	minTableSize = 5
)

var (
	// ErrAllocFailed is returned when the configured Allocator could not
	// provide a slot array. For New this is fatal; for growth the table
	// keeps serving at its old capacity.
	ErrAllocFailed = errors.New("robinhood: slot allocation failed")
	// ErrTableFull is returned by Put when every slot is live and growth
	// failed. Unreachable with the default allocator.
	ErrTableFull = errors.New("robinhood: table full")
)

type slotState uint8

const (
	slotEmpty     slotState = iota // never occupied
	slotTombstone                  // vacated; key retained for chain checks
	slotLive
)

// Slot is one cell of the table's backing array. A tombstoned slot keeps its
// stale key so that reusing the slot can detect a copy of the same key
// displaced further down the probe chain in an earlier epoch.
type Slot[V any] struct {
	hash     uint64
	key      []byte
	value    V
	probepos uint32
	state    slotState
}

// Table maps binary keys to values of type V. Construct with New; the zero
// value is not usable.
type Table[V any] struct {
	slots []Slot[V]
	// The slot count, always prime.
	size uint64
	// The largest prime strictly below size; modulus for step derivation.
	stepPrime uint64
	// The number of live entries.
	elements int
	// The sum of probepos over the live entries. totalWeight/elements is
	// the average probe distance the statistical search anchors on, so
	// every mutating path must keep it exact.
	totalWeight uint64
	// The largest probepos ever placed since the last rehash. An upper
	// bound on the live maximum: removals do not shrink it.
	maxProbe uint32

	hash          HashFn
	cmp           CompareFn
	maxLoadFactor float64
	allocator     Allocator[V]
}

// New constructs an empty Table at the default capacity. Use the options to
// override the hash and compare functions, the initial capacity, the maximum
// load factor, or the slot allocator. Returns ErrAllocFailed if the
// allocator cannot provide the initial slot array.
func New[V any](opts ...Option[V]) (*Table[V], error) {
	t := &Table[V]{
		size:          defaultTableSize,
		hash:          DJB2Hash,
		cmp:           bytes.Compare,
		maxLoadFactor: defaultMaxLoadFactor,
		allocator:     defaultAllocator[V]{},
	}
	for _, op := range opts {
		op.apply(t)
	}

	t.slots = t.allocator.AllocSlots(int(t.size))
	if t.slots == nil {
		return nil, ErrAllocFailed
	}
	t.stepPrime = nextPrimeStep(t.size)

	t.checkInvariants()
	return t, nil
}

// Put adds an entry or overwrites the value of an existing one. The key
// bytes are borrowed, not copied. Fails only when every slot is live and the
// table could not grow; a failed Put leaves the table untouched.
func (t *Table[V]) Put(key []byte, value V) error {
	// Grow before the insertion that would push the load factor past the
	// threshold. Growth failure is non-fatal while free slots remain: the
	// table keeps serving at its old capacity.
	if float64(t.elements+1)/float64(t.size) > t.maxLoadFactor {
		if err := t.grow(); err != nil && uint64(t.elements) == t.size {
			return ErrTableFull
		}
	}

	cand := Slot[V]{
		hash:  t.hash(key),
		key:   key,
		value: value,
		state: slotLive,
	}
	seq := makeProbeSeq(cand.hash, t.stepPrime, t.size)
	if debug {
		fmt.Printf("put(%q): %s\n", key, seq)
	}

	for {
		cand.probepos++
		t.totalWeight++

		i := seq.at(cand.probepos)
		e := &t.slots[i]
		switch {
		case e.state == slotEmpty:
			*e = cand
			t.elements++
			t.maxProbe = max(cand.probepos, t.maxProbe)
			t.checkInvariants()
			return nil

		case e.state == slotTombstone:
			// Reusing a vacated slot: the candidate's key may still be
			// live further down its chain if this slot opened up after
			// the key's original insert pushed past it. Reclaim that
			// stale copy rather than creating a second live entry.
			if j, ok := t.find(cand.key); ok {
				dup := &t.slots[j]
				if debug {
					fmt.Printf("put(%q): reclaiming duplicate at %d (probepos=%d)\n",
						key, j, dup.probepos)
				}
				*e = cand
				t.totalWeight -= uint64(dup.probepos)
				dup.state = slotTombstone
				// One live entry replaced another: elements and
				// maxProbe stand.
				t.checkInvariants()
				return nil
			}
			*e = cand
			t.elements++
			t.maxProbe = max(cand.probepos, t.maxProbe)
			t.checkInvariants()
			return nil

		case e.probepos < cand.probepos ||
			(e.probepos == cand.probepos && cand.hash < e.hash):
			// The resident has probed less than the candidate: evict it
			// and continue placing the resident along its own sequence,
			// probepos intact.
			if debug {
				fmt.Printf("put(%q): displacing %q at %d (probepos %d > %d)\n",
					key, e.key, i, cand.probepos, e.probepos)
			}
			t.maxProbe = max(cand.probepos, t.maxProbe)
			cand, *e = *e, cand
			seq = makeProbeSeq(cand.hash, t.stepPrime, t.size)

		case cand.hash == e.hash && t.cmp(cand.key, e.key) == 0:
			// Overwrite in place. Roll back the weight this non-insert
			// accumulated while probing.
			e.value = cand.value
			t.totalWeight -= uint64(cand.probepos)
			t.checkInvariants()
			return nil
		}
		// Resident wins; keep probing.
	}
}

// Get returns the value stored for key.
func (t *Table[V]) Get(key []byte) (value V, ok bool) {
	if i, ok := t.find(key); ok {
		return t.slots[i].value, true
	}
	return value, false
}

// FetchKey returns the stored key slice for key, not the queried one.
// Useful for interning key bytes.
func (t *Table[V]) FetchKey(key []byte) ([]byte, bool) {
	if i, ok := t.find(key); ok {
		return t.slots[i].key, true
	}
	return nil, false
}

// Delete removes the entry for key, reporting whether it was present. The
// slot becomes a tombstone: the probe chains running through it stay
// traversable and its key stays inspectable for reuse checks.
func (t *Table[V]) Delete(key []byte) bool {
	i, ok := t.find(key)
	if !ok {
		return false
	}
	e := &t.slots[i]
	e.state = slotTombstone
	t.elements--
	t.totalWeight -= uint64(e.probepos)
	t.checkInvariants()
	return true
}

// All calls yield for each live entry in array order (not insertion order;
// the order changes across a rehash). If yield returns false, iteration
// stops. The table must not be mutated during iteration.
func (t *Table[V]) All(yield func(key []byte, value V) bool) {
	for i := range t.slots {
		e := &t.slots[i]
		if e.state == slotLive {
			if !yield(e.key, e.value) {
				return
			}
		}
	}
}

// Len returns the number of live entries.
func (t *Table[V]) Len() int {
	return t.elements
}

// Clear removes all entries, retaining the current capacity.
func (t *Table[V]) Clear() {
	for i := range t.slots {
		t.slots[i] = Slot[V]{}
	}
	t.elements = 0
	t.totalWeight = 0
	t.maxProbe = 0
	t.checkInvariants()
}

// Close releases the slot array back to the configured allocator. It is
// unnecessary to close a table using the default allocator. Close is
// idempotent; any other use of the table after Close is invalid.
func (t *Table[V]) Close() {
	if t.allocator == nil {
		return
	}
	t.allocator.FreeSlots(t.slots)
	t.slots = nil
	t.allocator = nil
}

// find locates the slot index of a live entry for key using the statistical
// search: it anchors on the average probe distance totalWeight/elements and
// walks outward in both directions at once. The upward direction is done
// when it passes maxProbe or meets a never-occupied slot, which proves the
// key cannot sit further up its chain. The downward direction cannot tell a
// tombstone from a slot the chain merely passed through, so it walks all the
// way to probe distance 1.
func (t *Table[V]) find(key []byte) (int, bool) {
	if t.elements == 0 {
		return 0, false
	}

	seq := makeProbeSeq(t.hash(key), t.stepPrime, t.size)
	anchor := uint32(t.totalWeight / uint64(t.elements))
	if debug {
		fmt.Printf("find(%q): anchor=%d max-probe=%d %s\n", key, anchor, t.maxProbe, seq)
	}

	var topDone, botDone bool
	for walk := uint32(0); ; walk++ {
		if !topDone && anchor+walk <= t.maxProbe {
			e := &t.slots[seq.at(anchor+walk)]
			switch {
			case e.state == slotEmpty:
				// Nothing has ever probed through this slot, including
				// the chain for key.
				topDone = true
			case e.state == slotLive && t.cmp(key, e.key) == 0:
				return seq.at(anchor + walk), true
			}
		} else {
			topDone = true
		}

		if !botDone && walk < anchor {
			e := &t.slots[seq.at(anchor-walk)]
			if e.state == slotLive && t.cmp(key, e.key) == 0 {
				return seq.at(anchor - walk), true
			}
		} else {
			botDone = true
		}

		if topDone && botDone {
			return 0, false
		}
	}
}

// grow rehashes into a fresh array sized to the next prime at or above 2.5x
// the current size. On allocation failure the old array and every counter
// are left untouched and the table remains usable at its old capacity.
func (t *Table[V]) grow() error {
	newSize := nextPrimeSize(t.size, growthScalar)
	newSlots := t.allocator.AllocSlots(int(newSize))
	if newSlots == nil {
		return ErrAllocFailed
	}

	old := t.slots
	t.slots = newSlots
	t.size = newSize
	t.stepPrime = nextPrimeStep(newSize)
	t.elements = 0
	t.totalWeight = 0
	t.maxProbe = 0

	for i := range old {
		if old[i].state == slotLive {
			// Cannot fail: the new array is strictly larger and empty.
			_ = t.Put(old[i].key, old[i].value)
		}
	}

	t.allocator.FreeSlots(old)
	t.checkInvariants()
	return nil
}

// Stats is a point-in-time snapshot of the table's diagnostic counters.
type Stats struct {
	Size        int
	Elements    int
	LoadFactor  float64
	TotalWeight uint64
	AvgProbe    float64
	MaxProbe    uint32
}

// Stats reports the table's size, occupancy and probe-distance aggregates.
func (t *Table[V]) Stats() Stats {
	s := Stats{
		Size:        int(t.size),
		Elements:    t.elements,
		LoadFactor:  float64(t.elements) / float64(t.size),
		TotalWeight: t.totalWeight,
		MaxProbe:    t.maxProbe,
	}
	if t.elements > 0 {
		s.AvgProbe = float64(t.totalWeight) / float64(t.elements)
	}
	return s
}

func (s Stats) String() string {
	return fmt.Sprintf("size=%d elements=%d load-factor=%.3f total-weight=%d avg-probe=%.2f max-probe=%d",
		s.Size, s.Elements, s.LoadFactor, s.TotalWeight, s.AvgProbe, s.MaxProbe)
}

// probeSeq computes the double-hashing probe sequence for one key:
// at(i) = (hash + i*step) mod size with step = stepPrime - hash%stepPrime.
// stepPrime < size and both prime keeps the step non-zero and the sequence
// free of short cycles.
type probeSeq struct {
	hash uint64
	step uint64
	size uint64
}

func makeProbeSeq(hash, stepPrime, size uint64) probeSeq {
	return probeSeq{
		hash: hash,
		step: stepPrime - hash%stepPrime,
		size: size,
	}
}

// at returns the slot index at probe distance pos.
func (s probeSeq) at(pos uint32) int {
	return int((s.hash + uint64(pos)*s.step) % s.size)
}

func (s probeSeq) String() string {
	return fmt.Sprintf("hash=%x step=%d size=%d", s.hash, s.step, s.size)
}

func isPrime(n uint64) bool {
	if n <= 1 {
		return false
	}
	if n <= 3 {
		return true
	}
	if n%2 == 0 || n%3 == 0 {
		return false
	}
	for i := uint64(5); i*i <= n; i += 6 {
		if n%i == 0 || n%(i+2) == 0 {
			return false
		}
	}
	return true
}

// nextPrimeSize walks upward from size*scalar to the next prime, so the new
// size is at least the requested scale-up.
func nextPrimeSize(size uint64, scalar float64) uint64 {
	n := uint64(float64(size) * scalar)
	for !isPrime(n) {
		n++
	}
	return n
}

// nextPrimeStep walks downward from size-1, so the step modulus stays
// strictly below the table size.
func nextPrimeStep(size uint64) uint64 {
	n := size - 1
	for !isPrime(n) {
		n--
	}
	return n
}

func primeAtLeast(n uint64) uint64 {
	for !isPrime(n) {
		n++
	}
	return n
}

// checkInvariants recomputes the aggregate counters from scratch and
// verifies slot placement and findability. Compiled to a no-op unless the
// invariants build tag is set.
func (t *Table[V]) checkInvariants() {
	if invariants {
		if t.slots == nil {
			return
		}

		var elements int
		var weight uint64
		var maxProbe uint32
		for i := range t.slots {
			e := &t.slots[i]
			if e.state != slotLive {
				continue
			}
			elements++
			weight += uint64(e.probepos)
			maxProbe = max(maxProbe, e.probepos)

			seq := makeProbeSeq(e.hash, t.stepPrime, t.size)
			if want := seq.at(e.probepos); want != i {
				panic(fmt.Sprintf("invariant failed: slot %d: %q belongs at %d (probepos=%d)\n%s",
					i, e.key, want, e.probepos, t.debugString()))
			}
		}

		if elements != t.elements {
			panic(fmt.Sprintf("invariant failed: found %d live slots, but elements is %d\n%s",
				elements, t.elements, t.debugString()))
		}
		if weight != t.totalWeight {
			panic(fmt.Sprintf("invariant failed: recomputed weight %d, but totalWeight is %d\n%s",
				weight, t.totalWeight, t.debugString()))
		}
		if maxProbe > t.maxProbe {
			// maxProbe is only an upper bound after removals, never an
			// underestimate.
			panic(fmt.Sprintf("invariant failed: recomputed max probe %d exceeds maxProbe %d\n%s",
				maxProbe, t.maxProbe, t.debugString()))
		}

		for i := range t.slots {
			e := &t.slots[i]
			if e.state != slotLive {
				continue
			}
			if j, ok := t.find(e.key); !ok || j != i {
				panic(fmt.Sprintf("invariant failed: slot %d: %q not findable (got %d, %t)\n%s",
					i, e.key, j, ok, t.debugString()))
			}
		}
	}
}

func (t *Table[V]) debugString() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "size=%d step-prime=%d elements=%d total-weight=%d max-probe=%d\n",
		t.size, t.stepPrime, t.elements, t.totalWeight, t.maxProbe)
	for i := range t.slots {
		e := &t.slots[i]
		switch e.state {
		case slotTombstone:
			fmt.Fprintf(&buf, "  %4d: tombstone %q\n", i, e.key)
		case slotLive:
			fmt.Fprintf(&buf, "  %4d: %q [hash=%x probepos=%d]\n", i, e.key, e.hash, e.probepos)
		}
	}
	return buf.String()
}
