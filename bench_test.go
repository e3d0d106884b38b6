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

import (
	"fmt"
	"io"
	"strconv"
	"testing"

	"github.com/aclements/go-perfevent/perfbench"
)

func benchSizes(f func(b *testing.B, n int)) func(*testing.B) {
	var cases = []int{
		16,
		128,
		512,
		2048,
		8192,
		1 << 16,
	}

	return func(b *testing.B) {
		for _, n := range cases {
			b.Run("len="+strconv.Itoa(n), func(b *testing.B) { f(b, n) })
		}
	}
}

func genBenchKeys(start, end int) [][]byte {
	keys := make([][]byte, end-start)
	for i := range keys {
		keys[i] = []byte("key-" + strconv.Itoa(start+i))
	}
	return keys
}

func newBenchTable(b *testing.B, hash HashFn, capacity int) *Table[int] {
	m, err := New[int](WithHash[int](hash), WithInitialCapacity[int](capacity))
	if err != nil {
		b.Fatal(err)
	}
	return m
}

func BenchmarkTableGetHit(b *testing.B) {
	b.Run("impl=runtimeMap", benchSizes(benchmarkRuntimeMapGetHit))
	b.Run("impl=robinhood/hash=djb2", benchSizes(benchmarkTableGetHit(DJB2Hash)))
	b.Run("impl=robinhood/hash=xxhash", benchSizes(benchmarkTableGetHit(XXHash)))
}

func BenchmarkTableGetMiss(b *testing.B) {
	b.Run("impl=runtimeMap", benchSizes(benchmarkRuntimeMapGetMiss))
	b.Run("impl=robinhood/hash=djb2", benchSizes(benchmarkTableGetMiss(DJB2Hash)))
	b.Run("impl=robinhood/hash=xxhash", benchSizes(benchmarkTableGetMiss(XXHash)))
}

func BenchmarkTablePutGrow(b *testing.B) {
	b.Run("impl=runtimeMap", benchSizes(benchmarkRuntimeMapPutGrow))
	b.Run("impl=robinhood/hash=djb2", benchSizes(benchmarkTablePutGrow(DJB2Hash)))
	b.Run("impl=robinhood/hash=xxhash", benchSizes(benchmarkTablePutGrow(XXHash)))
}

func BenchmarkTablePutDelete(b *testing.B) {
	b.Run("impl=runtimeMap", benchSizes(benchmarkRuntimeMapPutDelete))
	b.Run("impl=robinhood/hash=djb2", benchSizes(benchmarkTablePutDelete(DJB2Hash)))
	b.Run("impl=robinhood/hash=xxhash", benchSizes(benchmarkTablePutDelete(XXHash)))
}

func BenchmarkTableIter(b *testing.B) {
	b.Run("impl=runtimeMap", benchSizes(benchmarkRuntimeMapIter))
	b.Run("impl=robinhood", benchSizes(benchmarkTableIter))
}

func benchmarkRuntimeMapGetHit(b *testing.B, n int) {
	m := make(map[string]int, n)
	keys := genBenchKeys(0, n)
	for i, k := range keys {
		m[string(k)] = i
	}
	ctrs := perfbench.Open(b)
	b.ResetTimer()
	ctrs.Reset()
	for i := 0; i < b.N; i++ {
		_ = m[string(keys[i%n])]
	}
}

func benchmarkTableGetHit(hash HashFn) func(b *testing.B, n int) {
	return func(b *testing.B, n int) {
		m := newBenchTable(b, hash, n)
		keys := genBenchKeys(0, n)
		for i, k := range keys {
			_ = m.Put(k, i)
		}
		ctrs := perfbench.Open(b)
		b.ResetTimer()
		ctrs.Reset()
		var ok bool
		for i := 0; i < b.N; i++ {
			_, ok = m.Get(keys[i%n])
		}
		b.StopTimer()
		fmt.Fprint(io.Discard, ok)
	}
}

func benchmarkRuntimeMapGetMiss(b *testing.B, n int) {
	m := make(map[string]int, n)
	keys := genBenchKeys(0, n)
	miss := genBenchKeys(-n, 0)
	for i, k := range keys {
		m[string(k)] = i
	}
	ctrs := perfbench.Open(b)
	b.ResetTimer()
	ctrs.Reset()
	for i := 0; i < b.N; i++ {
		_ = m[string(miss[i%n])]
	}
}

func benchmarkTableGetMiss(hash HashFn) func(b *testing.B, n int) {
	return func(b *testing.B, n int) {
		m := newBenchTable(b, hash, n)
		keys := genBenchKeys(0, n)
		miss := genBenchKeys(-n, 0)
		for i, k := range keys {
			_ = m.Put(k, i)
		}
		ctrs := perfbench.Open(b)
		b.ResetTimer()
		ctrs.Reset()
		var ok bool
		for i := 0; i < b.N; i++ {
			_, ok = m.Get(miss[i%n])
		}
		b.StopTimer()
		fmt.Fprint(io.Discard, ok)
	}
}

func benchmarkRuntimeMapPutGrow(b *testing.B, n int) {
	keys := genBenchKeys(0, n)
	ctrs := perfbench.Open(b)
	b.ResetTimer()
	ctrs.Reset()
	for i := 0; i < b.N; i++ {
		m := make(map[string]int)
		for j, k := range keys {
			m[string(k)] = j
		}
	}
}

func benchmarkTablePutGrow(hash HashFn) func(b *testing.B, n int) {
	return func(b *testing.B, n int) {
		keys := genBenchKeys(0, n)
		ctrs := perfbench.Open(b)
		b.ResetTimer()
		ctrs.Reset()
		for i := 0; i < b.N; i++ {
			m := newBenchTable(b, hash, 0)
			for j, k := range keys {
				_ = m.Put(k, j)
			}
		}
	}
}

func benchmarkRuntimeMapPutDelete(b *testing.B, n int) {
	m := make(map[string]int, n)
	keys := genBenchKeys(0, n)
	for i, k := range keys {
		m[string(k)] = i
	}
	ctrs := perfbench.Open(b)
	b.ResetTimer()
	ctrs.Reset()
	for i := 0; i < b.N; i++ {
		j := i % n
		delete(m, string(keys[j]))
		m[string(keys[j])] = j
	}
}

func benchmarkTablePutDelete(hash HashFn) func(b *testing.B, n int) {
	return func(b *testing.B, n int) {
		m := newBenchTable(b, hash, n)
		keys := genBenchKeys(0, n)
		for i, k := range keys {
			_ = m.Put(k, i)
		}
		ctrs := perfbench.Open(b)
		b.ResetTimer()
		ctrs.Reset()
		for i := 0; i < b.N; i++ {
			j := i % n
			m.Delete(keys[j])
			_ = m.Put(keys[j], j)
		}
	}
}

func benchmarkRuntimeMapIter(b *testing.B, n int) {
	m := make(map[string]int, n)
	keys := genBenchKeys(0, n)
	for i, k := range keys {
		m[string(k)] = i
	}
	ctrs := perfbench.Open(b)
	b.ResetTimer()
	ctrs.Reset()
	var tmp int
	for i := 0; i < b.N; i++ {
		for _, v := range m {
			tmp += v
		}
	}
	b.StopTimer()
	fmt.Fprint(io.Discard, tmp)
}

func benchmarkTableIter(b *testing.B, n int) {
	m := newBenchTable(b, DJB2Hash, n)
	keys := genBenchKeys(0, n)
	for i, k := range keys {
		_ = m.Put(k, i)
	}
	ctrs := perfbench.Open(b)
	b.ResetTimer()
	ctrs.Reset()
	var tmp int
	for i := 0; i < b.N; i++ {
		m.All(func(_ []byte, v int) bool {
			tmp += v
			return true
		})
	}
	b.StopTimer()
	fmt.Fprint(io.Discard, tmp)
}
