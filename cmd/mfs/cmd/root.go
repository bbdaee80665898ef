package cmd

import (
	"net/url"
	"os"

	"github.com/absfs/mfs"
	"github.com/apex/log"
	clihandler "github.com/apex/log/handlers/cli"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	confPath    string
	defaultFS   string
	juiceFSName string
	logLevel    string
	settings    map[string]string
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = newRootCommand()

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "mfs",
		Short: "Browse an H/J federated filesystem",
		Long: `Browse and modify a filesystem federated from a primary backend and a
JuiceFS secondary. The secondary is built by the factory named in
fs.jfs.impl, e.g. --set fs.jfs.impl=memmap.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.confPath, "conf", "", "dotenv file with configuration keys")
	flags.StringVar(&opts.defaultFS, "default-fs", "", "URI of the primary filesystem (fs.defaultFS)")
	flags.StringVar(&opts.juiceFSName, "juicefs-name", "", "name of the JuiceFS volume (juicefs.name)")
	flags.StringVar(&opts.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	flags.StringToStringVar(&opts.settings, "set", nil, "extra configuration keys, key=value")

	cmd.AddCommand(
		newListCommand(opts),
		newStatCommand(opts),
		newCatCommand(opts),
		newPutCommand(opts),
		newMkdirCommand(opts),
		newRemoveCommand(opts),
		newMoveCommand(opts),
		newDuCommand(opts),
		newChecksumCommand(opts),
	)
	return cmd
}

// openFS builds the federated filesystem described by the command's flags.
func (opts *rootOptions) openFS(cmd *cobra.Command) (*mfs.FileSystem, error) {
	level, err := log.ParseLevel(opts.logLevel)
	if err != nil {
		return nil, errors.Wrapf(err, "log level %q", opts.logLevel)
	}
	logger := &log.Logger{Handler: clihandler.New(cmd.ErrOrStderr()), Level: level}

	conf := mfs.NewConfiguration(nil)
	if opts.confPath != "" {
		if err := conf.LoadFromPath(opts.confPath); err != nil {
			return nil, err
		}
	}
	for key, value := range opts.settings {
		conf.Set(key, value)
	}
	if opts.defaultFS != "" {
		conf.Set(mfs.KeyDefaultFS, opts.defaultFS)
	}
	if opts.juiceFSName != "" {
		conf.Set(mfs.KeyJuiceFSName, opts.juiceFSName)
	}

	name := &url.URL{Scheme: mfs.DefaultScheme, Host: mfs.DefaultAuthority, Path: "/"}
	return mfs.Initialize(name, conf, mfs.WithLogger(logger))
}

// withFS runs fn against a freshly opened filesystem and closes it afterwards.
func (opts *rootOptions) withFS(cmd *cobra.Command, fn func(fsys *mfs.FileSystem) error) error {
	fsys, err := opts.openFS(cmd)
	if err != nil {
		return err
	}
	if err := fn(fsys); err != nil {
		fsys.Close()
		return err
	}
	return fsys.Close()
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Errorf("mfs: %s", err)
		os.Exit(1)
	}
}
