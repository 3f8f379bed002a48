package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/havenlang/havenchk/internal/heapcheck"
	"github.com/havenlang/havenchk/internal/mir"
)

func writeModule(t *testing.T, dir string, mod *mir.Module) string {
	t.Helper()

	data, err := json.Marshal(mod)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	path := filepath.Join(dir, "module.json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	return path
}

func TestLoadModuleRoundTrip(t *testing.T) {
	dir := t.TempDir()

	mod := &mir.Module{
		Name: "sample",
		Functions: []*mir.Function{
			{
				Name: "leaks",
				Blocks: []*mir.BasicBlock{
					{
						Name: "entry",
						Instr: []mir.Instr{
							mir.Call{Dst: "p", Callee: "malloc", Args: []mir.Value{{Kind: mir.ValConstInt, Int64: 8}}},
							mir.Ret{},
						},
					},
				},
			},
		},
	}

	path := writeModule(t, dir, mod)

	loaded, err := loadModule(path)
	if err != nil {
		t.Fatalf("loadModule: %v", err)
	}

	if loaded.Name != "sample" {
		t.Errorf("Name = %q, want sample", loaded.Name)
	}

	if len(loaded.Functions) != 1 || loaded.Functions[0].Name != "leaks" {
		t.Fatalf("Functions = %+v", loaded.Functions)
	}
}

func TestCheckModuleFindsLeak(t *testing.T) {
	mod := &mir.Module{
		Functions: []*mir.Function{
			{
				Name: "leaks",
				Blocks: []*mir.BasicBlock{
					{
						Name: "entry",
						Instr: []mir.Instr{
							mir.Call{Dst: "p", Callee: "malloc", Args: []mir.Value{{Kind: mir.ValConstInt, Int64: 8}}},
							mir.Ret{},
						},
					},
				},
			},
		},
	}

	findings := checkModule(heapcheck.DefaultConfig(), mod)
	if len(findings) == 0 {
		t.Fatal("expected a leak diagnostic for an unreleased allocation")
	}
}

func TestLoadModuleMissingFile(t *testing.T) {
	if _, err := loadModule(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("loadModule: want error for missing file")
	}
}
