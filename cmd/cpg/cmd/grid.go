package cmd

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/btzy/circuit-playground/pkg/circuit"
	"github.com/btzy/circuit-playground/pkg/ckt"
)

func isTextFormat(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".ckt")
}

// readGrid loads a circuit file, picking the format by extension.
func readGrid(path string) (circuit.Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		return circuit.Grid{}, errors.Wrapf(err, "opening %s", path)
	}
	defer f.Close()
	if isTextFormat(path) {
		return ckt.Parse(f)
	}
	return circuit.Decode(f)
}

// writeGrid stores a circuit file, picking the format by extension.
func writeGrid(g *circuit.Grid, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating %s", path)
	}
	if isTextFormat(path) {
		_, err = io.WriteString(f, ckt.Format(g))
	} else {
		err = g.Encode(f)
	}
	if err != nil {
		f.Close()
		return errors.Wrapf(err, "writing %s", path)
	}
	return f.Close()
}
