// Package wsio persists workspaces to files.
//
// A file holds a header identifying the kind of workspace followed by the
// gob-encoded state. Matrices are stored through their binary marshalers.
package wsio

import (
	"bufio"
	"encoding/gob"
	"fmt"
	"os"

	"github.com/gfabbian/NaMaster/nmterr"
)

const (
	magic   = "NMTWSP"
	version = 1
)

type header struct {
	Magic   string
	Version int
	Kind    string
}

// Save writes state to fname. The file is created or truncated.
// A failed write may leave a partial file.
func Save(op, fname, kind string, state any) (err error) {
	file, err := os.Create(fname)
	if err != nil {
		return nmterr.Wrap(op, nmterr.ErrWrite, err, "create")
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = nmterr.Wrap(op, nmterr.ErrWrite, cerr, "close")
		}
	}()
	w := bufio.NewWriter(file)
	enc := gob.NewEncoder(w)
	if err := enc.Encode(header{magic, version, kind}); err != nil {
		return nmterr.Wrap(op, nmterr.ErrWrite, err, "encode header")
	}
	if err := enc.Encode(state); err != nil {
		return nmterr.Wrap(op, nmterr.ErrWrite, err, "encode %s", kind)
	}
	if err := w.Flush(); err != nil {
		return nmterr.Wrap(op, nmterr.ErrWrite, err, "flush")
	}
	return nil
}

// Load reads state of the given kind from fname.
// state must be a pointer.
func Load(op, fname, kind string, state any) error {
	file, err := os.Open(fname)
	if err != nil {
		return nmterr.Wrap(op, nmterr.ErrRead, err, "open")
	}
	defer file.Close()
	dec := gob.NewDecoder(bufio.NewReader(file))
	var h header
	if err := dec.Decode(&h); err != nil {
		return nmterr.Wrap(op, nmterr.ErrRead, err, "decode header of %s", fname)
	}
	if h.Magic != magic {
		return nmterr.New(op, nmterr.ErrRead, "%s: not a workspace file", fname)
	}
	if h.Version != version {
		return nmterr.New(op, nmterr.ErrRead, "%s: unsupported version %d", fname, h.Version)
	}
	if h.Kind != kind {
		return nmterr.New(op, nmterr.ErrRead, "%s: want %s workspace, got %s", fname, kind, h.Kind)
	}
	if err := dec.Decode(state); err != nil {
		return nmterr.Wrap(op, nmterr.ErrRead, err, "decode %s", kind)
	}
	return nil
}

// Kind returns the kind stored in the header of fname.
func Kind(fname string) (string, error) {
	file, err := os.Open(fname)
	if err != nil {
		return "", err
	}
	defer file.Close()
	var h header
	if err := gob.NewDecoder(bufio.NewReader(file)).Decode(&h); err != nil {
		return "", err
	}
	if h.Magic != magic {
		return "", fmt.Errorf("%s: not a workspace file", fname)
	}
	return h.Kind, nil
}
