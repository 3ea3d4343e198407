package main

import (
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mpol-dev/visread/internal/archive"
)

var fetchNoUnpack bool

var fetchCmd = &cobra.Command{
	Use:   "fetch <url> <dir>",
	Short: "Download an observation tarball from a survey archive",
	Long: `Fetch downloads a (possibly gzipped) tarball, throttled and retried the
way public survey archives demand, and unpacks it under the target
directory. With --no-unpack the tarball is kept as downloaded.`,
	Args: cobra.ExactArgs(2),
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().BoolVar(&fetchNoUnpack, "no-unpack", false, "Keep the tarball instead of unpacking it")
}

func runFetch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	rawURL, dir := args[0], args[1]
	f := archive.NewFetcher(archive.Config{
		RateLimit:  cfg.Fetch.RateLimit,
		MaxRetries: cfg.Fetch.MaxRetries,
	}, logger)

	if fetchNoUnpack {
		u, err := url.Parse(rawURL)
		if err != nil {
			return fmt.Errorf("bad url %q: %w", rawURL, err)
		}
		name := path.Base(u.Path)
		if name == "" || name == "/" || name == "." {
			name = "download.tar"
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
		dest := filepath.Join(dir, name)
		n, err := f.FetchFile(ctx, rawURL, dest)
		if err != nil {
			return err
		}
		fmt.Printf("downloaded %s (%d bytes)\n", dest, n)
		return nil
	}

	if err := f.FetchAndUnpack(ctx, rawURL, dir); err != nil {
		return err
	}
	fmt.Printf("unpacked into %s\n", dir)
	return nil
}
