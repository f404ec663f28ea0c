// Package correlate groups the builds of both Drone generations by the commit
// they built.
package correlate

import (
	"drone-compare/src/drone"
)

// Side identifies which generation a build came from.
type Side int

const (
	Gen1 Side = iota
	Gen2
)

func (s Side) String() string {
	if s == Gen2 {
		return "drone2"
	}
	return "drone1"
}

// Bucket holds every admitted build for one commit, per generation, in the
// order they were admitted.
type Bucket struct {
	Commit string
	Gen1   []*drone.BuildDetail
	Gen2   []*drone.BuildDetail
}

// Comparable reports whether both generations built the commit.
func (b *Bucket) Comparable() bool {
	return len(b.Gen1) > 0 && len(b.Gen2) > 0
}

func (b *Bucket) side(s Side) *[]*drone.BuildDetail {
	if s == Gen2 {
		return &b.Gen2
	}
	return &b.Gen1
}

// Map is a commit-keyed collection of buckets. Buckets are iterated in the
// order their commit was first seen. Map is not safe for concurrent use.
type Map struct {
	index   map[string]*Bucket
	buckets []*Bucket
}

// NewMap returns an empty Map.
func NewMap() *Map {
	return &Map{index: make(map[string]*Bucket)}
}

// Add appends build to the side collection of its commit's bucket, creating
// the bucket on first sight.
func (m *Map) Add(side Side, build *drone.BuildDetail) {
	commit := build.Commit()
	bucket, ok := m.index[commit]
	if !ok {
		bucket = &Bucket{Commit: commit}
		m.index[commit] = bucket
		m.buckets = append(m.buckets, bucket)
	}
	list := bucket.side(side)
	*list = append(*list, build)
}

// Get returns the bucket for commit.
func (m *Map) Get(commit string) (*Bucket, bool) {
	b, ok := m.index[commit]
	return b, ok
}

// Buckets returns all buckets in first-insertion order.
func (m *Map) Buckets() []*Bucket {
	return m.buckets
}

// Len returns the number of distinct commits.
func (m *Map) Len() int {
	return len(m.buckets)
}

// Comparable returns the number of buckets built by both generations.
func (m *Map) Comparable() int {
	n := 0
	for _, b := range m.buckets {
		if b.Comparable() {
			n++
		}
	}
	return n
}
