package cmd

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/absfs/mfs"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// duParallelism bounds the summaries du computes at once.
const duParallelism = 4

func newListCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ls PATH",
		Short: "List a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := mfs.ParsePath(args[0])
			if err != nil {
				return err
			}
			return opts.withFS(cmd, func(fsys *mfs.FileSystem) error {
				entries, err := fsys.ListStatus(p)
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				for _, st := range entries {
					printStatus(w, st)
				}
				return w.Flush()
			})
		},
	}
}

func newStatCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stat PATH",
		Short: "Show the status of a file or directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := mfs.ParsePath(args[0])
			if err != nil {
				return err
			}
			return opts.withFS(cmd, func(fsys *mfs.FileSystem) error {
				st, err := fsys.GetFileStatus(p)
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				printStatus(w, st)
				return w.Flush()
			})
		},
	}
}

func printStatus(w io.Writer, st *mfs.FileStatus) {
	fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", st.Mode(), st.Length, st.ModTime().Format(time.RFC3339), st.Path)
}

func newCatCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "cat PATH",
		Short: "Print the contents of a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := mfs.ParsePath(args[0])
			if err != nil {
				return err
			}
			return opts.withFS(cmd, func(fsys *mfs.FileSystem) error {
				f, err := fsys.Open(p)
				if err != nil {
					return err
				}
				defer f.Close()
				_, err = io.Copy(cmd.OutOrStdout(), f)
				return err
			})
		},
	}
}

func newPutCommand(opts *rootOptions) *cobra.Command {
	var overwrite bool
	cmd := &cobra.Command{
		Use:   "put LOCAL PATH",
		Short: "Upload a local file to the primary filesystem",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := mfs.ParsePath(args[1])
			if err != nil {
				return err
			}
			src, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer src.Close()

			return opts.withFS(cmd, func(fsys *mfs.FileSystem) error {
				dst, err := fsys.Create(p, 0644, overwrite)
				if err != nil {
					return err
				}
				if _, err := io.Copy(dst, src); err != nil {
					dst.Close()
					return errors.Wrapf(err, "upload %s", args[0])
				}
				return dst.Close()
			})
		},
	}
	cmd.Flags().BoolVarP(&overwrite, "force", "f", false, "overwrite an existing file")
	return cmd
}

func newMkdirCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mkdir PATH",
		Short: "Create a directory and its parents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := mfs.ParsePath(args[0])
			if err != nil {
				return err
			}
			return opts.withFS(cmd, func(fsys *mfs.FileSystem) error {
				return fsys.Mkdirs(p, 0755)
			})
		},
	}
}

func newRemoveCommand(opts *rootOptions) *cobra.Command {
	var recursive bool
	cmd := &cobra.Command{
		Use:   "rm PATH",
		Short: "Delete a file or directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := mfs.ParsePath(args[0])
			if err != nil {
				return err
			}
			return opts.withFS(cmd, func(fsys *mfs.FileSystem) error {
				return fsys.Delete(p, recursive)
			})
		},
	}
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "delete directories and their contents")
	return cmd
}

func newMoveCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mv SRC DST",
		Short: "Rename a file or directory on the primary filesystem",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := mfs.ParsePath(args[0])
			if err != nil {
				return err
			}
			dst, err := mfs.ParsePath(args[1])
			if err != nil {
				return err
			}
			return opts.withFS(cmd, func(fsys *mfs.FileSystem) error {
				return fsys.Rename(src, dst)
			})
		},
	}
}

func newDuCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "du PATH...",
		Short: "Summarize directory count, file count and bytes under each path",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			paths := make([]mfs.Path, len(args))
			for i, arg := range args {
				p, err := mfs.ParsePath(arg)
				if err != nil {
					return err
				}
				paths[i] = p
			}
			return opts.withFS(cmd, func(fsys *mfs.FileSystem) error {
				summaries := make([]mfs.ContentSummary, len(paths))
				eg, ctx := errgroup.WithContext(cmd.Context())
				eg.SetLimit(duParallelism)
				for i, p := range paths {
					eg.Go(func() error {
						if err := ctx.Err(); err != nil {
							return err
						}
						cs, err := fsys.GetContentSummary(p)
						if err != nil {
							return err
						}
						summaries[i] = cs
						return nil
					})
				}
				if err := eg.Wait(); err != nil {
					return err
				}
				for i, cs := range summaries {
					fmt.Fprintf(cmd.OutOrStdout(), "%d %d %d %s\n", cs.DirectoryCount, cs.FileCount, cs.Length, paths[i])
				}
				return nil
			})
		},
	}
}

func newChecksumCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "checksum PATH",
		Short: "Print the backend checksum of a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := mfs.ParsePath(args[0])
			if err != nil {
				return err
			}
			return opts.withFS(cmd, func(fsys *mfs.FileSystem) error {
				cs, err := fsys.GetFileChecksum(p)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", p, cs.Algorithm, hex.EncodeToString(cs.Bytes))
				return nil
			})
		},
	}
}
