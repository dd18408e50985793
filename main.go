package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/udot/udot/internal/config"
	eventexec "github.com/udot/udot/internal/event"
	"github.com/udot/udot/internal/external"
	"github.com/udot/udot/internal/model"
	"github.com/udot/udot/internal/orchestrator"
	"github.com/udot/udot/internal/profile"
	"github.com/udot/udot/internal/prompt"
	"github.com/udot/udot/internal/rootop"
	"github.com/udot/udot/internal/state"
	"github.com/udot/udot/internal/uerrors"
	"github.com/udot/udot/internal/ulog"
)

var version = "dev"

// Global flags, the way nixfleet's main.go keeps its own CLI-wide
// state: one package-level var per persistent flag, filled in by
// rootCmd's PersistentFlags before any subcommand runs.
var (
	flagSession    string
	flagLog        bool
	flagDryRun     bool
	flagChanges    bool
	flagForce      bool
	flagSuperforce bool
	flagMakedirs   bool
	flagDUI        bool
	flagSkipRoot   bool
	flagSkipBefore bool
	flagSkipAfter  bool
	flagSkipEvents bool
	flagParent     string
	flagExclude    []string
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\ninterrupted, aborting")
		cancel()
	}()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		ulog.Error("%s", err)
		os.Exit(uerrors.CodeOf(err))
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "udot",
		Short:   "A declarative dotfile manager",
		Version: version,
		Long: `udot reconciles a declared set of dotfile profiles against a
persistent record of what's actually installed, computing the minimal
set of link/unlink operations needed and applying them through a
single auditable pipeline.`,
	}

	cmd.PersistentFlags().StringVar(&flagSession, "session", "", "session directory override (default: udot.yaml's session, or ~/.udot)")
	cmd.PersistentFlags().BoolVar(&flagLog, "log", false, "also log everything to <session>/udot.log")
	cmd.PersistentFlags().BoolVar(&flagDryRun, "dryrun", false, "compute and print operations without applying them")
	cmd.PersistentFlags().BoolVar(&flagChanges, "changes", false, "accepted; has no effect on output")
	cmd.PersistentFlags().BoolVar(&flagForce, "force", false, "overwrite conflicting files that look safe to replace")
	cmd.PersistentFlags().BoolVar(&flagSuperforce, "superforce", false, "overwrite even blacklisted paths")
	cmd.PersistentFlags().BoolVar(&flagMakedirs, "makedirs", false, "create missing parent directories for new links")
	cmd.PersistentFlags().BoolVar(&flagDUI, "dui", false, "reorder operations deepest-uninstall-first")
	cmd.PersistentFlags().BoolVar(&flagSkipRoot, "skiproot", false, "drop operations that would need root instead of asking for it")
	cmd.PersistentFlags().BoolVar(&flagSkipBefore, "skipbefore", false, "don't run beforeInstall/beforeUpdate/beforeUninstall scripts")
	cmd.PersistentFlags().BoolVar(&flagSkipAfter, "skipafter", false, "don't run afterInstall/afterUpdate/afterUninstall scripts")
	cmd.PersistentFlags().BoolVar(&flagSkipEvents, "skipevents", false, "don't run any event scripts at all")
	cmd.PersistentFlags().StringVar(&flagParent, "parent", "", "install/reinstall the named profiles under this parent")
	cmd.PersistentFlags().StringSliceVar(&flagExclude, "exclude", nil, "profile names to leave untouched by this run")

	cmd.AddCommand(updateCmd())
	cmd.AddCommand(removeCmd())
	cmd.AddCommand(showCmd())
	cmd.AddCommand(findCmd())
	cmd.AddCommand(historyCmd())
	cmd.AddCommand(timewarpCmd())
	cmd.AddCommand(syncCmd())
	cmd.AddCommand(resumeCmd())

	return cmd
}

// loadConfig merges udot.yaml with the persistent flags every
// subcommand shares, the way uberdot's const module merges its
// argparse namespace over defaults.yaml.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load("")
	if err != nil {
		return cfg, err
	}
	if flagSession != "" {
		cfg.SessionDir = flagSession
	}
	cfg.DryRun = flagDryRun
	cfg.Changes = flagChanges
	if flagForce {
		cfg.Force = true
	}
	if flagSuperforce {
		cfg.Superforce = true
	}
	if flagMakedirs {
		cfg.Makedirs = true
	}
	if flagDUI {
		cfg.DUI = true
	}
	if flagSkipRoot {
		cfg.SkipRoot = true
	}
	cfg.Exclude = flagExclude
	cfg.Parent = flagParent
	if err := cfg.EnsureSessionDir(); err != nil {
		return cfg, err
	}
	if flagLog {
		if _, err := ulog.EnableFileLog(cfg.SessionDir); err != nil {
			return cfg, err
		}
	}
	if cfg.DecryptPwd {
		pass, err := external.PromptPassphrase("passphrase for encrypted dynamic files: ")
		if err != nil {
			return cfg, err
		}
		gpgPassphrase = pass
	}
	return cfg, nil
}

// gpgPassphrase holds the passphrase loadConfig prompts for when the
// config's decrypt_pwd setting is on. Nothing in this file reads it;
// it is not handed to any GPGAdapter.
var gpgPassphrase []byte

func excludeSet(names []string) map[string]bool {
	out := make(map[string]bool, len(names))
	for _, n := range names {
		out[n] = true
	}
	return out
}

// eventConfig builds the shell-invocation settings every RunE handler
// passes to the orchestrator, demoting event scripts to the real
// invoking user when udot is currently running as root under sudo.
func eventConfig(cfg config.Config) eventexec.Config {
	ec := eventexec.Config{
		Shell:     cfg.Shell,
		ShellArgs: strings.Fields(cfg.ShellArgs),
		Timeout:   time.Duration(cfg.ShellTimeoutSec) * time.Second,
	}
	if uid, gid, ok := sudoInvoker(); ok {
		ec.DemoteUID = uid
		ec.DemoteGID = gid
	}
	return ec
}

// sudoInvoker recovers the real user's uid/gid from SUDO_UID/SUDO_GID,
// the environment sudo sets for the process it re-execs. A non-sudo
// invocation (or one where these aren't integers) reports ok=false.
func sudoInvoker() (uid, gid uint32, ok bool) {
	uidStr, gidStr := os.Getenv("SUDO_UID"), os.Getenv("SUDO_GID")
	if uidStr == "" || gidStr == "" {
		return 0, 0, false
	}
	u, err1 := strconv.ParseUint(uidStr, 10, 32)
	g, err2 := strconv.ParseUint(gidStr, 10, 32)
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return uint32(u), uint32(g), true
}

func newOrchestrator(cfg config.Config, store *state.Store) *orchestrator.Orchestrator {
	return &orchestrator.Orchestrator{
		Store:       store,
		SessionDir:  cfg.SessionDir,
		SearchPaths: cfg.SearchPaths,
	}
}

func commonOptions(cfg config.Config) orchestrator.Options {
	return orchestrator.Options{
		DryRun:     cfg.DryRun,
		Force:      cfg.Force,
		Superforce: cfg.Superforce,
		Makedirs:   cfg.Makedirs,
		UseDUI:     cfg.DUI,
		SkipRoot:   cfg.SkipRoot,
		SkipBefore: flagSkipBefore,
		SkipAfter:  flagSkipAfter,
		SkipEvents: flagSkipEvents,
		AskRoot:    !cfg.SkipRoot,
		Exclude:    excludeSet(cfg.Exclude),
		Parent: func() *string {
			if cfg.Parent == "" {
				return nil
			}
			return &cfg.Parent
		}(),
		EventConfig: eventConfig(cfg),
		Confirm:     prompt.Confirm,
		ResolveFix:  prompt.ResolveFix,
	}
}

// reportResult prints nothing: the orchestrator already streamed its
// operations. When the run was handed off to a re-executed (root)
// child, it exits with that child's exit code.
func reportResult(res *orchestrator.Result) error {
	if res.ReExecuted {
		os.Exit(res.ExitCode)
	}
	return nil
}

func updateCmd() *cobra.Command {
	var files []string
	cmd := &cobra.Command{
		Use:   "update --file profile.yaml [--file ...]",
		Short: "Install or update the named profiles",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := state.Current(cfg.SessionDir)
			if err != nil {
				return err
			}
			var results []*model.ProfileResult
			for _, f := range files {
				r, err := profile.LoadFile(f)
				if err != nil {
					return err
				}
				results = append(results, r)
			}
			if len(results) == 0 {
				return uerrors.NewUser("update needs at least one --file profile to install")
			}
			o := newOrchestrator(cfg, store)
			res, err := o.RunUpdate(cmd.Context(), commonOptions(cfg), results)
			if err != nil {
				return err
			}
			return reportResult(res)
		},
	}
	cmd.Flags().StringSliceVarP(&files, "file", "f", nil, "profile definition file(s) to install or update")
	return cmd
}

func removeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remove <profile> [profile...]",
		Short: "Uninstall the named profiles",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := state.Current(cfg.SessionDir)
			if err != nil {
				return err
			}
			o := newOrchestrator(cfg, store)
			res, err := o.RunRemove(cmd.Context(), commonOptions(cfg), args)
			if err != nil {
				return err
			}
			return reportResult(res)
		},
	}
	return cmd
}

func syncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Reconcile drift between the store and the live filesystem",
		Long: `sync compares every link this store knows about against what's
actually on disk, interactively resolving any that have drifted
(edited, replaced, or removed out from under udot) instead of treating
that drift as something update/remove need to solve.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := state.Current(cfg.SessionDir)
			if err != nil {
				return err
			}
			o := newOrchestrator(cfg, store)
			res, err := o.RunSync(cmd.Context(), commonOptions(cfg))
			if err != nil {
				return err
			}
			return reportResult(res)
		},
	}
	return cmd
}

func timewarpCmd() *cobra.Command {
	var earlier, later string
	var first, last bool

	cmd := &cobra.Command{
		Use:   "timewarp",
		Short: "Revert (or advance) to a previously recorded state",
		Long: `timewarp reconciles the live filesystem to match an earlier (or
later) snapshot, computing exactly the operations needed to turn the
current state into the target one.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			set := 0
			for _, b := range []bool{earlier != "", later != "", first, last} {
				if b {
					set++
				}
			}
			if set != 1 {
				return uerrors.NewUser("timewarp needs exactly one of --earlier, --later, --first, or --last")
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := state.Current(cfg.SessionDir)
			if err != nil {
				return err
			}

			target, err := resolveTimewarpTarget(cfg.SessionDir, earlier, later, first, last)
			if err != nil {
				return err
			}

			o := newOrchestrator(cfg, store)
			res, err := o.RunTimewarp(cmd.Context(), commonOptions(cfg), target)
			if err != nil {
				return err
			}
			return reportResult(res)
		},
	}

	cmd.Flags().StringVar(&earlier, "earlier", "", "go back to the latest snapshot at or before this long ago (a duration such as 90m)")
	cmd.Flags().StringVar(&later, "later", "", "go forward to the earliest snapshot at or after this long from now (a duration such as 90m)")
	cmd.Flags().BoolVar(&first, "first", false, "go back to the first recorded snapshot")
	cmd.Flags().BoolVar(&last, "last", false, "go forward to the most recent snapshot")
	return cmd
}

// resolveTimewarpTarget turns one of the four mutually exclusive
// selection flags into a loaded read-only Store, the way uberdot's
// timewarp mode resolved --earlier/--later/--first/--last into a
// single target state file before diffing against it.
func resolveTimewarpTarget(dir, earlier, later string, first, last bool) (*state.Store, error) {
	switch {
	case first:
		return state.FromIndex(dir, 0)
	case last:
		snaps, err := state.Snapshots(dir)
		if err != nil {
			return nil, err
		}
		if len(snaps) == 0 {
			return nil, uerrors.NewUser("no snapshots recorded yet")
		}
		return state.FromIndex(dir, len(snaps)-1)
	case earlier != "":
		d, err := time.ParseDuration(earlier)
		if err != nil {
			return nil, uerrors.NewUser("--earlier %q is not a valid duration: %v", earlier, err)
		}
		return state.FromLatestBefore(dir, time.Now().Add(-d).Unix())
	case later != "":
		d, err := time.ParseDuration(later)
		if err != nil {
			return nil, uerrors.NewUser("--later %q is not a valid duration: %v", later, err)
		}
		return state.FromLatestBefore(dir, time.Now().Add(d).Unix())
	}
	return nil, uerrors.NewUser("timewarp needs exactly one of --earlier, --later, --first, or --last")
}

func showCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show [profile]",
		Short: "Show installed profiles, or one profile's managed links",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := state.Current(cfg.SessionDir)
			if err != nil {
				return err
			}
			if len(args) == 0 {
				fmt.Println(prompt.ProfilesTable(store.Profiles()))
				return nil
			}
			p, ok := store.Profile(args[0])
			if !ok {
				return uerrors.NewUser("no installed profile named %q", args[0])
			}
			fmt.Println(prompt.LinksTable(p.Links))
			return nil
		},
	}
	return cmd
}

func findCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "find <path>",
		Short: "Report which installed profile (if any) manages a path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := state.Current(cfg.SessionDir)
			if err != nil {
				return err
			}
			target, err := filepath.Abs(args[0])
			if err != nil {
				return uerrors.NewUnknown(err, "resolving %s", args[0])
			}
			for _, p := range store.Profiles() {
				for _, l := range p.Links {
					if l.Path == target {
						fmt.Println(prompt.LinksTable([]model.LinkDescriptor{l}))
						fmt.Printf("managed by profile %q\n", p.Name)
						return nil
					}
				}
			}
			return uerrors.NewUser("%s is not managed by any installed profile", target)
		},
	}
	return cmd
}

func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded snapshots, oldest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			snaps, err := state.Snapshots(cfg.SessionDir)
			if err != nil {
				return err
			}
			fmt.Println(prompt.HistoryTable(snaps, time.Now()))
			return nil
		},
	}
	return cmd
}

// resumeCmd is the re-entry point a root-elevated child invokes after
// its parent handed off over rootop.ReExec: it decodes the envelope
// piped in on stdin and runs exactly the privileged tail of the
// original run. Hidden because users never type it directly — only
// rootop.ReExec invokes it, via sudo.
func resumeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:    "resume",
		Short:  "Continue a run handed off to a root-elevated child (internal)",
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := io.ReadAll(os.Stdin)
			if err != nil {
				return uerrors.NewUnknown(err, "reading root-elevation envelope from stdin")
			}
			env, err := rootop.Decode(data)
			if err != nil {
				return err
			}

			if cwd := os.Getenv("UBERDOT_CWD"); cwd != "" {
				_ = os.Chdir(cwd)
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			cfg.SessionDir = env.SessionDir
			cfg.DryRun = env.DryRun

			store, err := state.Current(cfg.SessionDir)
			if err != nil {
				return err
			}
			o := newOrchestrator(cfg, store)

			opts := commonOptions(cfg)
			opts.EventConfig.DemoteUID = uint32(env.InvokingUID)
			opts.EventConfig.DemoteGID = uint32(env.InvokingGID)

			_, err = o.ResumeElevated(cmd.Context(), opts, env.Operations)
			return err
		},
	}
	return cmd
}
