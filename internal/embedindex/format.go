package embedindex

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// vecFile is the on-disk binary layout for one document's embedding index:
// a small header (dimension, vector count, embedding model identity) followed
// by count*dim little-endian float32 values, one vector per chunk in the same
// order as the JSON sidecar's chunk metadata.
type vecFile struct {
	Dim     uint32
	Count   uint32
	ModelID string
	Vectors [][]float32
}

func writeVecFile(path string, f vecFile) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("embedindex: create %s: %w", path, err)
	}
	defer func() { _ = file.Close() }()

	w := bufio.NewWriter(file)
	if err := binary.Write(w, binary.LittleEndian, f.Dim); err != nil {
		return fmt.Errorf("embedindex: write dim: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, f.Count); err != nil {
		return fmt.Errorf("embedindex: write count: %w", err)
	}
	modelIDBytes := []byte(f.ModelID)
	if err := binary.Write(w, binary.LittleEndian, uint32(len(modelIDBytes))); err != nil {
		return fmt.Errorf("embedindex: write model_id length: %w", err)
	}
	if _, err := w.Write(modelIDBytes); err != nil {
		return fmt.Errorf("embedindex: write model_id: %w", err)
	}
	for _, vec := range f.Vectors {
		for _, v := range vec {
			if err := binary.Write(w, binary.LittleEndian, v); err != nil {
				return fmt.Errorf("embedindex: write vector component: %w", err)
			}
		}
	}
	return w.Flush()
}

func readVecFile(path string) (vecFile, error) {
	file, err := os.Open(path)
	if err != nil {
		return vecFile{}, err
	}
	defer func() { _ = file.Close() }()

	r := bufio.NewReader(file)
	var f vecFile
	if err := binary.Read(r, binary.LittleEndian, &f.Dim); err != nil {
		return vecFile{}, fmt.Errorf("embedindex: read dim: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &f.Count); err != nil {
		return vecFile{}, fmt.Errorf("embedindex: read count: %w", err)
	}
	var modelIDLen uint32
	if err := binary.Read(r, binary.LittleEndian, &modelIDLen); err != nil {
		return vecFile{}, fmt.Errorf("embedindex: read model_id length: %w", err)
	}
	modelIDBytes := make([]byte, modelIDLen)
	if _, err := io.ReadFull(r, modelIDBytes); err != nil {
		return vecFile{}, fmt.Errorf("embedindex: read model_id: %w", err)
	}
	f.ModelID = string(modelIDBytes)

	f.Vectors = make([][]float32, f.Count)
	for i := range f.Vectors {
		vec := make([]float32, f.Dim)
		for j := range vec {
			if err := binary.Read(r, binary.LittleEndian, &vec[j]); err != nil {
				return vecFile{}, fmt.Errorf("embedindex: read vector %d component %d: %w", i, j, err)
			}
		}
		f.Vectors[i] = vec
	}
	return f, nil
}
