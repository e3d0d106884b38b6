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

import "github.com/cespare/xxhash/v2"

// HashFn maps key bytes to an unsigned hash. The full hash drives both the
// starting slot and the probe step, so a HashFn that collapses keys to few
// values degrades the table to a linear scan (it stays correct).
type HashFn func(key []byte) uint64

// CompareFn orders two keys like bytes.Compare. The table only consumes the
// equality of the result.
type CompareFn func(a, b []byte) int

// DJB2Hash is the default HashFn, the djb2 multiplicative string hash.
func DJB2Hash(key []byte) uint64 {
	h := uint64(5381)
	for _, c := range key {
		h = (h << 5) + h + uint64(c)
	}
	return h
}

// XXHash is an alternative HashFn computing xxHash64 over the key bytes.
// Better dispersion than DJB2Hash on long or adversarial keys, at a slightly
// higher fixed cost on very short ones.
func XXHash(key []byte) uint64 {
	return xxhash.Sum64(key)
}
