// Package main provides the havenchk CLI: a path-sensitive heap-lifecycle
// static checker over MIR modules, with single-shot checking, watch mode,
// and an HTTP/3 checking service.
package main

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/havenlang/havenchk/internal/build"
	"github.com/havenlang/havenchk/internal/checkersvc"
	"github.com/havenlang/havenchk/internal/cli"
	"github.com/havenlang/havenchk/internal/diagnostics"
	"github.com/havenlang/havenchk/internal/heapcheck"
	"github.com/havenlang/havenchk/internal/mir"
	"github.com/havenlang/havenchk/internal/rules"
	"github.com/havenlang/havenchk/internal/symexec"
	"github.com/havenlang/havenchk/internal/watchmode"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	sub := os.Args[1]
	args := os.Args[2:]

	switch sub {
	case "help", "-h", "--help":
		usage()
	case "version", "-v", "--version":
		jsonOutput := false

		for _, a := range args {
			if a == "--json" || a == "-j" {
				jsonOutput = true

				break
			}
		}

		cli.PrintVersion("havenchk", jsonOutput)
	case "check":
		runCheck(args)
	case "serve":
		runServe(args)
	default:
		fmt.Fprintf(os.Stderr, "unknown subcommand: %s\n", sub)
		usage()
		os.Exit(2)
	}
}

func usage() {
	commands := []cli.CommandInfo{
		{Name: "check", Description: "Check one or more MIR module files for heap-lifecycle bugs"},
		{Name: "serve", Description: "Run the checker as an HTTP/3 service"},
		{Name: "version", Description: "Show version information"},
	}

	cli.PrintUsage("havenchk", commands)
}

func runCheck(args []string) {
	fs := flag.NewFlagSet("check", flag.ExitOnError)

	watch := fs.Bool("watch", false, "re-check whenever an input file changes")
	jsonOut := fs.Bool("json", false, "emit diagnostics as JSON")
	rulesDir := fs.String("rules", "", "directory of semver-gated classifier rule packs")
	platform := fs.String("platform", "", "target platform for kernel allocator flag decoding (freebsd, netbsd, openbsd, linux)")
	targetVersion := fs.String("target-version", "0.0.0", "semver of the target runtime/library, for rule pack gating")

	_ = fs.Parse(args)

	files := fs.Args()
	if len(files) == 0 {
		cli.ExitWithError("check requires at least one MIR module file")
	}

	if *rulesDir != "" {
		reg := rules.NewRegistry()
		if err := reg.LoadDir(*rulesDir); err != nil {
			cli.ExitWithError("loading rule packs: %v", err)
		}

		applied, err := reg.Apply(*targetVersion)
		if err != nil {
			cli.ExitWithError("applying rule packs: %v", err)
		}

		if len(applied) > 0 {
			fmt.Fprintf(os.Stderr, "applied rule packs: %v\n", applied)
		}
	}

	cfg := heapcheck.DefaultConfig()
	cfg.Platform = *platform

	checkFiles := func(paths []string) map[string][]diagnostics.Diagnostic {
		results := make(map[string][]diagnostics.Diagnostic, len(paths))

		for _, path := range paths {
			mod, err := loadModule(path)
			if err != nil {
				fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)

				continue
			}

			results[path] = checkModule(cfg, mod)
		}

		return results
	}

	if !*watch {
		printDiagnostics(flattenResults(checkFiles(files)), *jsonOut)

		return
	}

	runIncrementalWatch(files, checkFiles, *jsonOut)
}

// runIncrementalWatch re-checks only the module files whose content
// actually changed between fsnotify events, rather than re-running the
// whole file set on every filesystem event an editor's save produces.
func runIncrementalWatch(files []string, checkFiles func([]string) map[string][]diagnostics.Diagnostic, jsonOut bool) {
	engine := build.NewIncrementalEngine()

	globs := make(map[build.TargetID][]string, len(files))
	for _, f := range files {
		globs[build.TargetID(f)] = []string{f}
	}

	last := make(map[string][]diagnostics.Diagnostic)

	var prevSnapshot build.Snapshot

	run := func(first bool) {
		curr, err := engine.SnapshotInputs(globs)
		if err != nil {
			fmt.Fprintf(os.Stderr, "watch: snapshot: %v\n", err)

			return
		}

		var dirty []build.TargetID

		if first {
			for _, f := range files {
				dirty = append(dirty, build.TargetID(f))
			}
		} else {
			dirty, err = engine.Diff(prevSnapshot, curr)
			if err != nil {
				fmt.Fprintf(os.Stderr, "watch: diff: %v\n", err)

				return
			}
		}

		prevSnapshot = curr

		if len(dirty) == 0 {
			return
		}

		dirtyPaths := make([]string, len(dirty))
		for i, tid := range dirty {
			dirtyPaths[i] = string(tid)
		}

		fresh := checkFiles(dirtyPaths)
		for path, findings := range fresh {
			last[path] = findings
		}

		printDiagnostics(flattenResults(last), jsonOut)
	}

	w, err := watchmode.New(files, 200*time.Millisecond)
	if err != nil {
		cli.ExitWithError("watch: %v", err)
	}
	defer w.Close()

	first := true

	if err := w.Run(context.Background(), func(watchmode.Event) {
		run(first)
		first = false
	}); err != nil {
		cli.ExitWithError("watch: %v", err)
	}
}

func flattenResults(results map[string][]diagnostics.Diagnostic) []diagnostics.Diagnostic {
	var all []diagnostics.Diagnostic
	for _, findings := range results {
		all = append(all, findings...)
	}

	return all
}

func runServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)

	addr := fs.String("addr", ":4433", "UDP address to serve HTTP/3 on")
	certFile := fs.String("cert", "", "TLS certificate file")
	keyFile := fs.String("key", "", "TLS key file")
	platform := fs.String("platform", "", "target platform for kernel allocator flag decoding")

	_ = fs.Parse(args)

	cfg := heapcheck.DefaultConfig()
	cfg.Platform = *platform

	var tlsCfg *tls.Config

	if *certFile != "" && *keyFile != "" {
		cert, err := tls.LoadX509KeyPair(*certFile, *keyFile)
		if err != nil {
			cli.ExitWithError("loading TLS credentials: %v", err)
		}

		tlsCfg = &tls.Config{Certificates: []tls.Certificate{cert}}
	}

	srv := checkersvc.NewServer(*addr, cfg, tlsCfg)

	realAddr, err := srv.Start()
	if err != nil {
		cli.ExitWithError("starting service: %v", err)
	}

	fmt.Printf("havenchk serving HTTP/3 on %s\n", realAddr)

	if err := <-srv.Errors(); err != nil {
		cli.ExitWithError("service stopped: %v", err)
	}
}

func loadModule(path string) (*mir.Module, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}

	var mod mir.Module
	if err := json.Unmarshal(data, &mod); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	return &mod, nil
}

func checkModule(cfg heapcheck.Config, mod *mir.Module) []diagnostics.Diagnostic {
	newEngine := func() *symexec.Engine {
		return symexec.NewEngine(heapcheck.NewChecker(cfg, mod))
	}

	results, err := symexec.RunModule(context.Background(), mod, newEngine, runtime.GOMAXPROCS(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "check: %v\n", err)

		return nil
	}

	var all []diagnostics.Diagnostic
	for _, r := range results {
		all = append(all, r.Findings...)
	}

	return all
}

func printDiagnostics(all []diagnostics.Diagnostic, jsonOut bool) {
	if jsonOut {
		data, err := json.MarshalIndent(all, "", "  ")
		if err != nil {
			cli.ExitWithError("marshaling diagnostics: %v", err)
		}

		fmt.Println(string(data))

		return
	}

	if len(all) == 0 {
		fmt.Println("no issues found")

		return
	}

	for _, d := range all {
		fmt.Printf("%s:%d:%d: %s: %s\n", d.Span.Start.Filename, d.Span.Start.Line, d.Span.Start.Column, d.Level, d.Message)
	}
}
