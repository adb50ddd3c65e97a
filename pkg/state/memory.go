/*
Copyright 2022 The Numaproj Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package state

import (
	"sync"
	"time"
)

type cellAddr struct {
	key  string
	ns   Namespace
	addr Address
}

// memoryBackend is the default, test- and single-process-friendly Backend, storing every cell
// in plain Go maps guarded by one mutex, in the style of the teacher's in-memory KV store and
// PBQ memory store.
type memoryBackend struct {
	mu            sync.Mutex
	values        map[cellAddr][]byte
	bags          map[cellAddr][][]byte
	holds         map[cellAddr]*time.Time
	pendingClears map[string][]cellAddr
}

// NewMemoryBackend returns an empty in-memory Backend.
func NewMemoryBackend() Backend {
	return &memoryBackend{
		values:        make(map[cellAddr][]byte),
		bags:          make(map[cellAddr][][]byte),
		holds:         make(map[cellAddr]*time.Time),
		pendingClears: make(map[string][]cellAddr),
	}
}

func (m *memoryBackend) Value(key string, ns Namespace, addr Address) ValueCell {
	return &memoryValueCell{b: m, ca: cellAddr{key, ns, addr}}
}

func (m *memoryBackend) Bag(key string, ns Namespace, addr Address) BagCell {
	return &memoryBagCell{b: m, ca: cellAddr{key, ns, addr}}
}

func (m *memoryBackend) WatermarkHold(key string, ns Namespace, addr Address) WatermarkHoldCell {
	return &memoryHoldCell{b: m, ca: cellAddr{key, ns, addr}}
}

func (m *memoryBackend) MergeBags(key string, sources []Namespace, result Namespace, addr Address) BagCell {
	m.mu.Lock()
	defer m.mu.Unlock()

	resultCA := cellAddr{key, result, addr}
	var union [][]byte
	for _, ns := range sources {
		sourceCA := cellAddr{key, ns, addr}
		union = append(union, m.bags[sourceCA]...)
		if sourceCA != resultCA {
			m.pendingClears[key] = append(m.pendingClears[key], sourceCA)
		}
	}
	m.bags[resultCA] = union
	return &memoryBagCell{b: m, ca: resultCA}
}

func (m *memoryBackend) MergeWatermarkHolds(key string, sources []Namespace, result Namespace, addr Address, combine func(existing, incoming time.Time) time.Time) WatermarkHoldCell {
	m.mu.Lock()
	defer m.mu.Unlock()

	resultCA := cellAddr{key, result, addr}
	var merged *time.Time
	for _, ns := range sources {
		sourceCA := cellAddr{key, ns, addr}
		if h := m.holds[sourceCA]; h != nil {
			if merged == nil {
				t := *h
				merged = &t
			} else {
				t := combine(*merged, *h)
				merged = &t
			}
		}
		if sourceCA != resultCA {
			m.pendingClears[key] = append(m.pendingClears[key], sourceCA)
		}
	}
	m.holds[resultCA] = merged
	return &memoryHoldCell{b: m, ca: resultCA}
}

func (m *memoryBackend) Persist(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, ca := range m.pendingClears[key] {
		delete(m.values, ca)
		delete(m.bags, ca)
		delete(m.holds, ca)
	}
	delete(m.pendingClears, key)
	return nil
}

type memoryValueCell struct {
	b  *memoryBackend
	ca cellAddr
}

func (c *memoryValueCell) Read() ([]byte, bool) {
	c.b.mu.Lock()
	defer c.b.mu.Unlock()
	v, ok := c.b.values[c.ca]
	return v, ok
}

func (c *memoryValueCell) Write(v []byte) {
	c.b.mu.Lock()
	defer c.b.mu.Unlock()
	c.b.values[c.ca] = v
}

func (c *memoryValueCell) Clear() {
	c.b.mu.Lock()
	defer c.b.mu.Unlock()
	delete(c.b.values, c.ca)
}

type memoryBagCell struct {
	b  *memoryBackend
	ca cellAddr
}

func (c *memoryBagCell) Append(v []byte) {
	c.b.mu.Lock()
	defer c.b.mu.Unlock()
	c.b.bags[c.ca] = append(c.b.bags[c.ca], v)
}

func (c *memoryBagCell) ReadAll() [][]byte {
	c.b.mu.Lock()
	defer c.b.mu.Unlock()
	out := make([][]byte, len(c.b.bags[c.ca]))
	copy(out, c.b.bags[c.ca])
	return out
}

func (c *memoryBagCell) Clear() {
	c.b.mu.Lock()
	defer c.b.mu.Unlock()
	delete(c.b.bags, c.ca)
}

type memoryHoldCell struct {
	b  *memoryBackend
	ca cellAddr
}

func (c *memoryHoldCell) Add(t time.Time, combine func(existing, incoming time.Time) time.Time) {
	c.b.mu.Lock()
	defer c.b.mu.Unlock()
	if existing := c.b.holds[c.ca]; existing != nil {
		merged := combine(*existing, t)
		c.b.holds[c.ca] = &merged
		return
	}
	c.b.holds[c.ca] = &t
}

func (c *memoryHoldCell) Read() (time.Time, bool) {
	c.b.mu.Lock()
	defer c.b.mu.Unlock()
	h := c.b.holds[c.ca]
	if h == nil {
		return time.Time{}, false
	}
	return *h, true
}

func (c *memoryHoldCell) Clear() {
	c.b.mu.Lock()
	defer c.b.mu.Unlock()
	delete(c.b.holds, c.ca)
}
