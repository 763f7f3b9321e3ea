// Package cli implements the sdrctl command line interface for inspecting
// and maintaining sidecar settings stores.
package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/pagemark/sidecar/internal/docsettings"
	"github.com/pagemark/sidecar/internal/fs"
	"github.com/pagemark/sidecar/internal/lualit"
)

// Run is the main entry point. Returns exit code.
func Run(stdout, stderr io.Writer, args []string) int {
	flags := pflag.NewFlagSet("sdrctl", pflag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.Usage = func() { printUsage(stderr, flags) }

	configPath := flags.String("config", "", "path to a JSONC config file")
	mode := flags.String("mode", "", "placement mode override (doc or central)")
	settingsDir := flags.String("settings-dir", "", "central sidecar root override")
	historyDir := flags.String("history-dir", "", "legacy history folder override")
	verbose := flags.BoolP("verbose", "v", false, "log resolution and purge activity")

	err := flags.Parse(args[1:])
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}

		return 2
	}

	rest := flags.Args()
	if len(rest) == 0 {
		printUsage(stdout, flags)

		return 0
	}

	cfg, err := docsettings.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)

		return 1
	}

	if *mode != "" {
		cfg.PlacementMode, err = docsettings.ParsePlacementMode(*mode)
		if err != nil {
			fmt.Fprintln(stderr, "error:", err)

			return 1
		}
	}

	if *settingsDir != "" {
		cfg.SettingsDir = *settingsDir
	}

	if *historyDir != "" {
		cfg.HistoryDir = *historyDir
	}

	log := zerolog.Nop()
	if *verbose {
		log = zerolog.New(zerolog.ConsoleWriter{Out: stderr}).With().Timestamp().Logger()
	}

	store := docsettings.NewStore(cfg, fs.NewReal(), log)

	return dispatch(stdout, stderr, flags, store, rest[0], rest[1:])
}

func dispatch(stdout, stderr io.Writer, flags *pflag.FlagSet, store *docsettings.Store, cmd string, args []string) int {
	switch cmd {
	case "show":
		return cmdShow(stdout, stderr, store, args)
	case "candidates":
		return cmdCandidates(stdout, stderr, store, args)
	case "get":
		return cmdGet(stdout, stderr, store, args)
	case "set":
		return cmdSet(stdout, stderr, store, args)
	case "purge":
		return cmdPurge(stdout, stderr, store, args)
	case "help":
		printUsage(stdout, flags)

		return 0
	default:
		fmt.Fprintf(stderr, "error: unknown command %q\n", cmd)
		printUsage(stderr, flags)

		return 2
	}
}

func printUsage(out io.Writer, flags *pflag.FlagSet) {
	fmt.Fprint(out, `sdrctl - inspect and maintain sidecar settings stores

Usage:
  sdrctl [flags] show <doc>             print the resolved settings record
  sdrctl [flags] candidates <doc>       list discovered candidates, winner first
  sdrctl [flags] get <doc> <key>        print one setting
  sdrctl [flags] set <doc> <key> <val>  set a string setting and flush
  sdrctl [flags] purge <doc>            delete all sidecar data for the document

Flags:
`)
	fmt.Fprintln(out, flags.FlagUsages())
}

func needArgs(stderr io.Writer, args []string, n int, usage string) bool {
	if len(args) == n {
		return true
	}

	fmt.Fprintln(stderr, "usage: sdrctl", usage)

	return false
}

func cmdShow(stdout, stderr io.Writer, store *docsettings.Store, args []string) int {
	if !needArgs(stderr, args, 1, "show <doc>") {
		return 2
	}

	session := store.Open(args[0])

	body, err := lualit.Marshal(map[string]any(session.Record()))
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)

		return 1
	}

	fmt.Fprintf(stdout, "return %s\n", body)

	return 0
}

func cmdCandidates(stdout, stderr io.Writer, store *docsettings.Store, args []string) int {
	if !needArgs(stderr, args, 1, "candidates <doc>") {
		return 2
	}

	session := store.Open(args[0])
	source, _ := session.SourcePath()

	for _, cand := range session.Candidates() {
		marker := " "
		if cand.Path == source {
			marker = "*"
		}

		fmt.Fprintf(stdout, "%s %s\t%s\n", marker, cand.MTime.Format("2006-01-02 15:04:05"), cand.Path)
	}

	return 0
}

func cmdGet(stdout, stderr io.Writer, store *docsettings.Store, args []string) int {
	if !needArgs(stderr, args, 2, "get <doc> <key>") {
		return 2
	}

	session := store.Open(args[0])

	value := session.Record().ReadSetting(args[1])
	if value == nil {
		fmt.Fprintln(stderr, "error: no such setting")

		return 1
	}

	body, err := lualit.Marshal(value)
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)

		return 1
	}

	fmt.Fprintln(stdout, string(body))

	return 0
}

func cmdSet(stdout, stderr io.Writer, store *docsettings.Store, args []string) int {
	if !needArgs(stderr, args, 3, "set <doc> <key> <val>") {
		return 2
	}

	session := store.Open(args[0])
	session.Record().SaveSetting(args[1], args[2])

	dir, err := session.Flush()
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)

		return 1
	}

	fmt.Fprintln(stdout, dir)

	return 0
}

func cmdPurge(stdout, stderr io.Writer, store *docsettings.Store, args []string) int {
	if !needArgs(stderr, args, 1, "purge <doc>") {
		return 2
	}

	session := store.Open(args[0])
	session.Purge()

	fmt.Fprintln(stdout, "purged")

	return 0
}
