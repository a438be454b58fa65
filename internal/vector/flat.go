// Package vector provides a flat L2-distance vector index with binary
// save/restore, used by the dense retrieval methods and the ensemble's
// combined index.
package vector

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// Neighbor is a single nearest-neighbor hit.
type Neighbor struct {
	ID       int
	Distance float64
}

// FlatIndex is a brute-force L2 index over fixed-dimension vectors.
// Exhaustive search keeps results exact; the corpora here are paragraph-scale,
// so no approximate structure is needed.
type FlatIndex struct {
	dimensions int
	ids        []int
	vectors    [][]float32
	mu         sync.RWMutex
}

// NewFlatIndex creates an empty flat index with the given dimension.
func NewFlatIndex(dimensions int) (*FlatIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	return &FlatIndex{dimensions: dimensions}, nil
}

// Add appends vectors with the given IDs.
func (f *FlatIndex) Add(ctx context.Context, ids []int, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("ids and vectors length mismatch")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, id := range ids {
		if len(vectors[i]) != f.dimensions {
			return fmt.Errorf("vector dimension mismatch: got %d, expected %d", len(vectors[i]), f.dimensions)
		}
		vec := make([]float32, f.dimensions)
		copy(vec, vectors[i])
		f.ids = append(f.ids, id)
		f.vectors = append(f.vectors, vec)
	}
	return nil
}

// Search returns the k nearest vectors by L2 distance, closest first.
// Ties are broken by insertion order so identical inputs rank identically.
func (f *FlatIndex) Search(ctx context.Context, query []float32, k int) ([]Neighbor, error) {
	if len(query) != f.dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(query), f.dimensions)
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	if k <= 0 || len(f.ids) == 0 {
		return nil, nil
	}
	neighbors := make([]Neighbor, len(f.ids))
	for i, vec := range f.vectors {
		var sum float64
		for j := 0; j < f.dimensions; j++ {
			d := float64(query[j] - vec[j])
			sum += d * d
		}
		neighbors[i] = Neighbor{ID: f.ids[i], Distance: math.Sqrt(sum)}
	}
	sort.SliceStable(neighbors, func(i, j int) bool { return neighbors[i].Distance < neighbors[j].Distance })
	if k > len(neighbors) {
		k = len(neighbors)
	}
	return neighbors[:k], nil
}

// Dimensions returns the vector dimension.
func (f *FlatIndex) Dimensions() int {
	return f.dimensions
}

// Size returns the number of vectors in the index.
func (f *FlatIndex) Size() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.ids)
}

// Save persists the index to path. Directory is created if needed.
// Format: dimensions (4), n (4), then per vector: id (8), vector (dimensions*4).
func (f *FlatIndex) Save(path string) error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create index file: %w", err)
	}
	defer out.Close()
	if err := f.write(out); err != nil {
		return err
	}
	return nil
}

func (f *FlatIndex) write(w io.Writer) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(f.dimensions)); err != nil {
		return fmt.Errorf("write dimensions: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(f.ids))); err != nil {
		return fmt.Errorf("write count: %w", err)
	}
	for i, id := range f.ids {
		if err := binary.Write(w, binary.LittleEndian, int64(id)); err != nil {
			return fmt.Errorf("write id: %w", err)
		}
		if _, err := w.Write(float32SliceToBytes(f.vectors[i])); err != nil {
			return fmt.Errorf("write vector: %w", err)
		}
	}
	return nil
}

// LoadFlatIndex reads an index blob from path. The caller decides which
// execution target queries against the restored index run on; the blob
// carries only dimensions and vectors.
func LoadFlatIndex(path string) (*FlatIndex, error) {
	in, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open index file: %w", err)
	}
	defer in.Close()

	var dim, n uint32
	if err := binary.Read(in, binary.LittleEndian, &dim); err != nil {
		return nil, fmt.Errorf("read dimensions: %w", err)
	}
	if err := binary.Read(in, binary.LittleEndian, &n); err != nil {
		return nil, fmt.Errorf("read count: %w", err)
	}
	f, err := NewFlatIndex(int(dim))
	if err != nil {
		return nil, err
	}
	buf := make([]byte, f.dimensions*4)
	for i := uint32(0); i < n; i++ {
		var id int64
		if err := binary.Read(in, binary.LittleEndian, &id); err != nil {
			return nil, fmt.Errorf("read id: %w", err)
		}
		if _, err := io.ReadFull(in, buf); err != nil {
			return nil, fmt.Errorf("read vector: %w", err)
		}
		f.ids = append(f.ids, int(id))
		f.vectors = append(f.vectors, bytesToFloat32Slice(buf))
	}
	return f, nil
}

func float32SliceToBytes(s []float32) []byte {
	const size = 4
	out := make([]byte, len(s)*size)
	for i, v := range s {
		binary.LittleEndian.PutUint32(out[i*size:(i+1)*size], math.Float32bits(v))
	}
	return out
}

func bytesToFloat32Slice(b []byte) []float32 {
	const size = 4
	out := make([]float32, len(b)/size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*size : (i+1)*size]))
	}
	return out
}
