package ui

import (
	"os"
	"path/filepath"

	"gioui.org/x/explorer"

	"github.com/btzy/circuit-playground/pkg/circuit"
	"github.com/btzy/circuit-playground/pkg/sim"
	"github.com/btzy/circuit-playground/pkg/state"
)

// openFilePicker lets the user pick a circuit file and loads it. The
// explorer blocks, so the dialog runs on its own goroutine.
func (a *App) openFilePicker() {
	go func() {
		file, err := a.fileExplorer.ChooseFile("ccpg", "ckt")
		if err != nil {
			if err != explorer.ErrUserDecline {
				a.Logf("[ERROR] File picker failed: %v", err)
			}
			return
		}
		defer file.Close()

		f, ok := file.(*os.File)
		if !ok {
			a.Logf("[ERROR] Unable to get file path from picker")
			return
		}
		a.loadCircuit(f.Name())
	}()
}

func (a *App) loadCircuit(path string) {
	var err error
	a.State.Edit(func(m *state.Manager) {
		a.floatSel = circuit.Grid{}
		err = m.Load(path)
	})
	if err != nil {
		a.Logf("[ERROR] Failed to load circuit: %v", err)
		return
	}
	a.State.SetStatus("Loaded " + filepath.Base(path))
	a.Logf("[INFO] Loaded circuit: %s", path)
	a.invalidate()
}

// saveCircuit writes to the bound file, or prompts for a destination when
// there is none yet or the user asked to save elsewhere.
func (a *App) saveCircuit(saveAs bool) {
	path := ""
	a.State.Edit(func(m *state.Manager) {
		path = m.FilePath()
	})
	if path != "" && !saveAs {
		a.writeCircuit(path)
		return
	}
	go func() {
		file, err := a.fileExplorer.CreateFile("circuit.ccpg")
		if err != nil {
			if err != explorer.ErrUserDecline {
				a.Logf("[ERROR] Save dialog failed: %v", err)
			}
			return
		}
		f, ok := file.(*os.File)
		if !ok {
			file.Close()
			a.Logf("[ERROR] Unable to get file path from dialog")
			return
		}
		name := f.Name()
		f.Close()
		a.writeCircuit(name)
	}()
}

// bindCommFile prompts for a file and attaches it to the file
// communicator behind the handle. An input communicator reads the chosen
// file from the next simulation reset; an output communicator truncates
// it and streams into it immediately.
func (a *App) bindCommFile(reg *sim.Registry, handle int32) {
	switch c := reg.Lookup(handle).(type) {
	case *sim.FileInputCommunicator:
		go func() {
			file, err := a.fileExplorer.ChooseFile()
			if err != nil {
				if err != explorer.ErrUserDecline {
					a.Logf("[ERROR] File picker failed: %v", err)
				}
				return
			}
			defer file.Close()
			f, ok := file.(*os.File)
			if !ok {
				a.Logf("[ERROR] Unable to get file path from picker")
				return
			}
			c.SetFilePath(f.Name())
			a.State.SetStatus("Input reads " + filepath.Base(f.Name()) + " on next reset")
			a.Logf("[INFO] File input bound: %s", f.Name())
			a.invalidate()
		}()
	case *sim.FileOutputCommunicator:
		go func() {
			file, err := a.fileExplorer.CreateFile("output.bin")
			if err != nil {
				if err != explorer.ErrUserDecline {
					a.Logf("[ERROR] Save dialog failed: %v", err)
				}
				return
			}
			f, ok := file.(*os.File)
			if !ok {
				file.Close()
				a.Logf("[ERROR] Unable to get file path from dialog")
				return
			}
			name := f.Name()
			f.Close()
			c.SetFile(name)
			a.State.SetStatus("Output writes to " + filepath.Base(name))
			a.Logf("[INFO] File output bound: %s", name)
			a.invalidate()
		}()
	}
}

func (a *App) writeCircuit(path string) {
	var err error
	a.State.Edit(func(m *state.Manager) {
		a.commitFloat(m)
		err = m.Save(path)
	})
	if err != nil {
		a.Logf("[ERROR] Failed to save circuit: %v", err)
		return
	}
	a.State.SetStatus("Saved " + filepath.Base(path))
	a.Logf("[INFO] Saved circuit: %s", path)
	a.invalidate()
}
