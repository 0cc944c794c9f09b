package wire

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/vmihailenco/msgpack/v5"

	"martianoff/sharplua/internal/lowering/resolved"
)

// Manifest summarizes one lowered program for the emitter that follows.
type Manifest struct {
	Schema     uint16   `msgpack:"schema"`
	Units      []string `msgpack:"units"`
	Types      []string `msgpack:"types"`
	Enums      []string `msgpack:"enums,omitempty"`
	EntryPoint string   `msgpack:"entry,omitempty"`
}

// WriteManifest stamps m with the schema version and writes it to w.
func WriteManifest(w io.Writer, m *Manifest) error {
	m.Schema = SchemaVersion
	return msgpack.NewEncoder(w).Encode(m)
}

// ReadManifest reads a manifest and rejects other schema versions.
func ReadManifest(r io.Reader) (*Manifest, error) {
	var m Manifest
	if err := msgpack.NewDecoder(r).Decode(&m); err != nil {
		return nil, err
	}
	if m.Schema != SchemaVersion {
		return nil, fmt.Errorf("wire: manifest schema version %d, want %d", m.Schema, SchemaVersion)
	}
	return &m, nil
}

// ReadFile decodes the program stored at path.
func ReadFile(path string) (*resolved.Program, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}

// WriteFile encodes prog to path, replacing it atomically.
func WriteFile(path string, prog *resolved.Program) error {
	return writeAtomic(path, func(w io.Writer) error { return Encode(w, prog) })
}

// WriteManifestFile writes m to path, replacing it atomically.
func WriteManifestFile(path string, m *Manifest) error {
	return writeAtomic(path, func(w io.Writer) error { return WriteManifest(w, m) })
}

func writeAtomic(path string, write func(io.Writer) error) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, "tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(f.Name())
		}
	}()
	if err = write(f); err != nil {
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), path)
}
