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

package robinhood

// Option provides an interface to do work on a Table while it is being
// created.
type Option[V any] interface {
	apply(t *Table[V])
}

type hashOption[V any] struct {
	hash HashFn
}

func (op hashOption[V]) apply(t *Table[V]) {
	t.hash = op.hash
}

// WithHash is an option to specify the hash function for a Table[V]. The
// default is DJB2Hash.
func WithHash[V any](hash HashFn) Option[V] {
	return hashOption[V]{hash}
}

type compareOption[V any] struct {
	cmp CompareFn
}

func (op compareOption[V]) apply(t *Table[V]) {
	t.cmp = op.cmp
}

// WithCompare is an option to specify the key comparison function for a
// Table[V]. The default is bytes.Compare.
func WithCompare[V any](cmp CompareFn) Option[V] {
	return compareOption[V]{cmp}
}

type initialCapacityOption[V any] struct {
	capacity int
}

func (op initialCapacityOption[V]) apply(t *Table[V]) {
	n := uint64(op.capacity)
	if n < minTableSize {
		n = minTableSize
	}
	t.size = primeAtLeast(n)
}

// WithInitialCapacity is an option to start a Table[V] at the nearest prime
// size at or above capacity instead of the default 547.
func WithInitialCapacity[V any](capacity int) Option[V] {
	return initialCapacityOption[V]{capacity}
}

type maxLoadFactorOption[V any] struct {
	maxLoadFactor float64
}

func (op maxLoadFactorOption[V]) apply(t *Table[V]) {
	f := op.maxLoadFactor
	if f <= 0 || f > 1 {
		f = defaultMaxLoadFactor
	}
	t.maxLoadFactor = f
}

// WithMaxLoadFactor is an option to specify the load factor above which a
// Table[V] grows. Values outside (0, 1] fall back to the default 0.95.
func WithMaxLoadFactor[V any](maxLoadFactor float64) Option[V] {
	return maxLoadFactorOption[V]{maxLoadFactor}
}

// Allocator specifies an interface for allocating and releasing the slot
// array backing a Table. The default allocator utilizes Go's builtin make()
// and allows the GC to reclaim memory.
//
// If the allocator is manually managing memory, Table.Close must be called
// in order to ensure FreeSlots is called.
type Allocator[V any] interface {
	// AllocSlots should return a slice equivalent to make([]Slot[V], n),
	// or nil if the memory cannot be obtained.
	AllocSlots(n int) []Slot[V]

	// FreeSlots can optionally release the memory associated with the
	// supplied slice that is guaranteed to have been allocated by
	// AllocSlots.
	FreeSlots(v []Slot[V])
}

type defaultAllocator[V any] struct{}

func (defaultAllocator[V]) AllocSlots(n int) []Slot[V] {
	return make([]Slot[V], n)
}

func (defaultAllocator[V]) FreeSlots(v []Slot[V]) {
}

type allocatorOption[V any] struct {
	allocator Allocator[V]
}

func (op allocatorOption[V]) apply(t *Table[V]) {
	t.allocator = op.allocator
}

// WithAllocator is an option to specify the Allocator to use for a Table[V].
func WithAllocator[V any](allocator Allocator[V]) Option[V] {
	return allocatorOption[V]{allocator}
}
