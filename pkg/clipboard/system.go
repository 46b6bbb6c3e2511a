package clipboard

import (
	"bytes"
	"encoding/base64"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/pkg/errors"

	"github.com/btzy/circuit-playground/pkg/circuit"
)

// Circuits travel through the OS clipboard as the save file bytes,
// base64-encoded behind a marker prefix so unrelated text is rejected
// cheaply.
const systemPrefix = "ccpg:"

// CopyToSystem places the grid on the OS clipboard.
func CopyToSystem(g *circuit.Grid) error {
	var buf bytes.Buffer
	if err := g.Encode(&buf); err != nil {
		return err
	}
	text := systemPrefix + base64.StdEncoding.EncodeToString(buf.Bytes())
	return errors.Wrap(clipboard.WriteAll(text), "writing system clipboard")
}

// PasteFromSystem reads a grid off the OS clipboard. Returns an empty
// grid without error when the clipboard holds something else.
func PasteFromSystem() (circuit.Grid, error) {
	text, err := clipboard.ReadAll()
	if err != nil {
		return circuit.Grid{}, errors.Wrap(err, "reading system clipboard")
	}
	if !strings.HasPrefix(text, systemPrefix) {
		return circuit.Grid{}, nil
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(text, systemPrefix))
	if err != nil {
		return circuit.Grid{}, errors.Wrap(err, "decoding clipboard payload")
	}
	return circuit.Decode(bytes.NewReader(raw))
}
