package cmd

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/aweris/patchsync"
	"github.com/aweris/patchsync/internal/state"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Synchronize the output directory with the patch manifest",
	Long: "Checks every file on the patch manifest against the local copy and " +
		"downloads only what is missing, wrong-sized, or hash-mismatched.",
	RunE: runSync,
}

func init() {
	syncCmd.Flags().StringP("root-domain", "r", "", "root domain to download everything from")
	syncCmd.Flags().StringP("output-dir", "o", "", "directory where files are written")
	syncCmd.Flags().BoolP("validate", "v", false, "recalculate hashes of all local files instead of trusting the cache")
	syncCmd.Flags().BoolP("delete-files", "d", false, "delete local files that are no longer on the patch list")

	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	logger.Info("patchsync starting", "version", patchsync.Version)

	rootDomain, outputDir, err := resolveSettings(cmd)
	if err != nil {
		return err
	}

	hashes, err := state.Load(statePath())
	if err != nil {
		return err
	}

	validate, _ := cmd.Flags().GetBool("validate")
	removeExtra, _ := cmd.Flags().GetBool("delete-files")

	s := patchsync.New(rootDomain, outputDir,
		patchsync.WithLogger(logger),
		patchsync.WithConfirmer(patchsync.ConfirmFunc(promptConfirm)),
		patchsync.WithProgress(func(totalBytes int64) patchsync.Progress {
			return barTracker{progressbar.DefaultBytes(totalBytes, "downloading files")}
		}),
	)

	out, err := s.Sync(cmd.Context(), hashes, validate, removeExtra)
	if err != nil {
		return err
	}
	if out.Deferred {
		fmt.Fprintln(os.Stderr, "Servers are under maintenance, try again later.")
		return nil
	}

	return persistOutcome(hashes, out)
}

// persistOutcome folds the run's deltas into the cached hashes and
// writes them back. Nil maps mean nothing changed in that category; a
// run that changed nothing skips the write entirely.
func persistOutcome(hashes map[string]string, out *patchsync.Outcome) error {
	if out.Updated == nil && out.Deleted == nil {
		return nil
	}
	for path, sum := range out.Updated {
		hashes[path] = sum
	}
	for path := range out.Deleted {
		delete(hashes, path)
	}
	return state.Save(statePath(), hashes)
}

// resolveSettings determines root domain and output directory. Flags
// override stored config and are persisted; missing values are asked
// for interactively on first run.
func resolveSettings(cmd *cobra.Command) (rootDomain, outputDir string, err error) {
	flagRoot, _ := cmd.Flags().GetString("root-domain")
	flagOut, _ := cmd.Flags().GetString("output-dir")

	dirty := false
	rootDomain, changed, err := ensureSetting("root_domain", flagRoot, "Please specify the root domain to use:")
	if err != nil {
		return "", "", err
	}
	dirty = dirty || changed

	outputDir, changed, err = ensureSetting("output_dir", flagOut, "Please specify the output directory:")
	if err != nil {
		return "", "", err
	}
	dirty = dirty || changed

	if dirty {
		if err := saveConfig(); err != nil {
			return "", "", err
		}
	}
	return rootDomain, outputDir, nil
}

func ensureSetting(key, flagValue, question string) (value string, changed bool, err error) {
	if flagValue != "" {
		changed = viper.GetString(key) != flagValue
		viper.Set(key, flagValue)
		return flagValue, changed, nil
	}
	if v := viper.GetString(key); v != "" {
		return v, false, nil
	}

	v, err := promptValue(question)
	if err != nil {
		return "", false, err
	}
	viper.Set(key, v)
	return v, true, nil
}

func saveConfig() error {
	path := viper.ConfigFileUsed()
	if path == "" {
		path = filepath.Join(configDir(), "config.yaml")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := viper.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func promptValue(question string) (string, error) {
	fmt.Fprint(os.Stderr, question+" ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("read answer: %w", err)
	}
	value := strings.TrimSpace(line)
	if value == "" {
		return "", fmt.Errorf("no value given for %q", question)
	}
	return value, nil
}

// promptConfirm is a simple yes/no prompt. An empty answer picks the
// default.
func promptConfirm(question string, def bool) bool {
	prompt := "[y/N]"
	if def {
		prompt = "[Y/n]"
	}

	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Fprintf(os.Stderr, "%s %s ", question, prompt)
		line, err := reader.ReadString('\n')
		if err != nil {
			return def
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "":
			return def
		case "y", "ye", "yes":
			return true
		case "n", "no":
			return false
		}
		fmt.Fprintln(os.Stderr, "Please respond with 'yes' or 'no' (or 'y'/'n').")
	}
}

// barTracker adapts progressbar to the core's Progress interface. The
// bar guards its own state, so concurrent Add calls from download
// workers are safe.
type barTracker struct {
	bar *progressbar.ProgressBar
}

func (b barTracker) Add(n int) { _ = b.bar.Add(n) }
