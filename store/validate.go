package store

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Validation is the result of structural checks on a stored artifact.
type Validation struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

// Validate runs the structural checks in order: existence, filename
// grammar, non-zero size, size ceiling, PNG signature. The first failing
// check determines the reported reason.
func (m *Manager) Validate(name string) (*Validation, error) {
	path := filepath.Join(m.cfg.Dir, filepath.Base(name))

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return &Validation{Reason: "file not found"}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: validate stat %s: %w", name, err)
	}

	if !ValidName(name) {
		return &Validation{Reason: "invalid filename"}, nil
	}

	if info.Size() == 0 {
		return &Validation{Reason: "empty file"}, nil
	}

	if info.Size() > m.cfg.MaxFileBytes {
		return &Validation{Reason: fmt.Sprintf("file exceeds maximum size (%d > %d bytes)", info.Size(), m.cfg.MaxFileBytes)}, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("store: validate open %s: %w", name, err)
	}
	defer f.Close()

	magic := make([]byte, len(pngMagic))
	if _, err := io.ReadFull(f, magic); err != nil {
		return &Validation{Reason: "invalid PNG signature"}, nil
	}
	if !bytes.Equal(magic, pngMagic) {
		return &Validation{Reason: "invalid PNG signature"}, nil
	}

	return &Validation{Valid: true}, nil
}

// PNGMagic returns the fixed PNG signature, for callers that check capture
// output before handing it to Save.
func PNGMagic() []byte {
	return append([]byte(nil), pngMagic...)
}
