// Package main implements the webhdfs command-line tool.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"regexp"
	"strconv"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"

	"github.com/nucleus/webhdfs-core/internal/config"
	"github.com/nucleus/webhdfs-core/pkg/webhdfs"
)

const usageText = `Usage: webhdfs [options] <command> [arguments]

Commands:
  cat <url>                print a remote file to stdout
  cp [-f] <src> <dst>      copy between local path and hdfs:// url
  ls <url>                 list a remote directory
  mkdir <url>              create a remote directory
  rm [-r] <url>            remove a remote file or directory
  rename <url> <new-path>  rename a remote file or directory
  stat <url>               print status of a remote path
  du <url>                 print space usage of a remote path

Remote paths are given as hdfs://host[:port]/path, or as plain /path when
the namenode host comes from flags, a profile or the environment.

Options:
`

func usage() {
	fmt.Fprint(os.Stderr, usageText)
	flag.PrintDefaults()
}

func main() {
	os.Exit(run())
}

func run() int {
	var (
		host            = flag.String("host", "", "namenode host (overrides profile and environment)")
		port            = flag.Int("port", 0, "namenode HTTP port")
		user            = flag.String("user", "", "user.name sent with every request")
		profiles        = flag.String("profiles", "", "path to the YAML profiles file")
		profile         = flag.String("profile", "", "profile name to apply")
		connectTimeout  = flag.Int("connect-timeout", 0, "connection timeout in seconds")
		transferTimeout = flag.Int("transfer-timeout", 0, "whole-transfer timeout in seconds")
		rateLimit       = flag.Float64("rate", 0, "max namenode requests per second")
	)
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		return 2
	}

	settings, err := config.Load(*profiles, *profile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "webhdfs: %v\n", err)
		return 1
	}
	if *host != "" {
		settings.Host = *host
	}
	if *port != 0 {
		settings.Port = *port
	}
	if *user != "" {
		settings.User = *user
	}
	if *connectTimeout != 0 {
		settings.ConnectTimeoutSecs = *connectTimeout
	}
	if *transferTimeout != 0 {
		settings.TransferTimeoutSecs = *transferTimeout
	}
	if *rateLimit != 0 {
		settings.RequestsPerSecond = *rateLimit
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := dispatch(ctx, settings, args[0], args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "webhdfs: %v\n", err)
		return 1
	}
	return 0
}

func dispatch(ctx context.Context, settings *config.ClientSettings, command string, args []string) error {
	switch command {
	case "cat":
		return cmdCat(ctx, settings, args)
	case "cp":
		return cmdCp(ctx, settings, args)
	case "ls":
		return cmdLs(ctx, settings, args)
	case "mkdir":
		return cmdMkdir(ctx, settings, args)
	case "rm":
		return cmdRm(ctx, settings, args)
	case "rename":
		return cmdRename(ctx, settings, args)
	case "stat":
		return cmdStat(ctx, settings, args)
	case "du":
		return cmdDu(ctx, settings, args)
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

// ============================================================
// Remote path arguments
// ============================================================

var hdfsURLPattern = regexp.MustCompile(`^hdfs://([^:/]+)(?::(\d+))?(/.*)$`)

// target is one remote path argument, with the endpoint parts an hdfs://
// url may carry.
type target struct {
	host string
	port int
	path string
}

// parseTarget reads a command argument as either an hdfs://host[:port]/path
// url or a plain remote path.
func parseTarget(arg string) (*target, error) {
	if m := hdfsURLPattern.FindStringSubmatch(arg); m != nil {
		t := &target{host: m[1], path: m[3]}
		if m[2] != "" {
			p, err := strconv.Atoi(m[2])
			if err != nil {
				return nil, fmt.Errorf("bad port in %q", arg)
			}
			t.port = p
		}
		return t, nil
	}
	if len(arg) > 0 && arg[0] == '/' {
		return &target{path: arg}, nil
	}
	return nil, fmt.Errorf("remote path %q must be an hdfs:// url or start with /", arg)
}

// isRemote reports whether arg names a remote path rather than a local file.
func isRemote(arg string) bool {
	return hdfsURLPattern.MatchString(arg)
}

// clientFor builds a client for one target, letting the url's endpoint parts
// override the configured ones.
func clientFor(settings *config.ClientSettings, t *target) (*webhdfs.Client, error) {
	cfg := webhdfs.Config{
		Host:              settings.Host,
		Port:              settings.Port,
		User:              settings.User,
		ConnectTimeout:    time.Duration(settings.ConnectTimeoutSecs) * time.Second,
		TransferTimeout:   time.Duration(settings.TransferTimeoutSecs) * time.Second,
		RequestsPerSecond: settings.RequestsPerSecond,
		RateBurst:         settings.RateBurst,
	}
	if t.host != "" {
		cfg.Host = t.host
	}
	if t.port != 0 {
		cfg.Port = t.port
	}
	if cfg.Host == "" {
		return nil, errors.New("no namenode host: use an hdfs:// url, -host, a profile or WEBHDFS_HOST")
	}
	return webhdfs.New(cfg)
}

func oneTarget(settings *config.ClientSettings, args []string, usage string) (*webhdfs.Client, *target, error) {
	if len(args) != 1 {
		return nil, nil, errors.New(usage)
	}
	t, err := parseTarget(args[0])
	if err != nil {
		return nil, nil, err
	}
	client, err := clientFor(settings, t)
	if err != nil {
		return nil, nil, err
	}
	return client, t, nil
}

// ============================================================
// Commands
// ============================================================

func cmdCat(ctx context.Context, settings *config.ClientSettings, args []string) error {
	client, t, err := oneTarget(settings, args, "usage: cat <url>")
	if err != nil {
		return err
	}
	return client.ReadFile(ctx, t.path, os.Stdout, nil)
}

func cmdCp(ctx context.Context, settings *config.ClientSettings, args []string) error {
	fs := flag.NewFlagSet("cp", flag.ContinueOnError)
	force := fs.Bool("f", false, "overwrite the destination file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	rest := fs.Args()
	if len(rest) != 2 {
		return errors.New("usage: cp [-f] <src> <dst>")
	}
	src, dst := rest[0], rest[1]
	switch {
	case isRemote(src) && !isRemote(dst):
		return download(ctx, settings, src, dst)
	case !isRemote(src) && isRemote(dst):
		return upload(ctx, settings, src, dst, *force)
	default:
		return errors.New("cp copies between a local path and an hdfs:// url; exactly one side must be remote")
	}
}

func upload(ctx context.Context, settings *config.ClientSettings, src, dst string, force bool) error {
	t, err := parseTarget(dst)
	if err != nil {
		return err
	}
	client, err := clientFor(settings, t)
	if err != nil {
		return err
	}
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()

	var opts *webhdfs.WriteOptions
	if force {
		opts = new(webhdfs.WriteOptions).SetOverwrite(true)
	}
	return client.WriteFile(ctx, f, t.path, opts)
}

func download(ctx context.Context, settings *config.ClientSettings, src, dst string) error {
	t, err := parseTarget(src)
	if err != nil {
		return err
	}
	client, err := clientFor(settings, t)
	if err != nil {
		return err
	}
	if info, err := os.Stat(dst); err == nil && info.IsDir() {
		dst = filepath.Join(dst, path.Base(t.path))
	}

	// Download into a staging file so an interrupted transfer never leaves
	// a truncated result at the destination.
	staging := fmt.Sprintf("%s.partial-%s", dst, uuid.New().String())
	f, err := os.Create(staging)
	if err != nil {
		return err
	}
	if err := client.ReadFile(ctx, t.path, f, nil); err != nil {
		f.Close()
		os.Remove(staging)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(staging)
		return err
	}
	return os.Rename(staging, dst)
}

func cmdLs(ctx context.Context, settings *config.ClientSettings, args []string) error {
	client, t, err := oneTarget(settings, args, "usage: ls <url>")
	if err != nil {
		return err
	}
	entries, err := client.ListDir(ctx, t.path)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	for i := range entries {
		st := &entries[i]
		kind := "-"
		if st.IsDir() {
			kind = "d"
		}
		fmt.Fprintf(w, "%s%s\t%d\t%s\t%s\t%d\t%s\t%s\n",
			kind, st.Permission, st.Replication, st.Owner, st.Group,
			st.Length, st.Modified().Format("2006-01-02 15:04"), st.PathSuffix)
	}
	return w.Flush()
}

func cmdMkdir(ctx context.Context, settings *config.ClientSettings, args []string) error {
	client, t, err := oneTarget(settings, args, "usage: mkdir <url>")
	if err != nil {
		return err
	}
	return client.MakeDir(ctx, t.path, nil)
}

func cmdRm(ctx context.Context, settings *config.ClientSettings, args []string) error {
	fs := flag.NewFlagSet("rm", flag.ContinueOnError)
	recursive := fs.Bool("r", false, "remove directories and their contents")
	if err := fs.Parse(args); err != nil {
		return err
	}
	client, t, err := oneTarget(settings, fs.Args(), "usage: rm [-r] <url>")
	if err != nil {
		return err
	}
	var opts *webhdfs.RemoveOptions
	if *recursive {
		opts = new(webhdfs.RemoveOptions).SetRecursive(true)
	}
	return client.Remove(ctx, t.path, opts)
}

func cmdRename(ctx context.Context, settings *config.ClientSettings, args []string) error {
	if len(args) != 2 {
		return errors.New("usage: rename <url> <new-path>")
	}
	t, err := parseTarget(args[0])
	if err != nil {
		return err
	}
	newT, err := parseTarget(args[1])
	if err != nil {
		return err
	}
	if newT.host != "" && newT.host != t.host {
		return errors.New("rename cannot move between namenodes")
	}
	client, err := clientFor(settings, t)
	if err != nil {
		return err
	}
	return client.Rename(ctx, t.path, newT.path)
}

func cmdStat(ctx context.Context, settings *config.ClientSettings, args []string) error {
	client, t, err := oneTarget(settings, args, "usage: stat <url>")
	if err != nil {
		return err
	}
	st, err := client.Stat(ctx, t.path)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintf(w, "Path:\t%s\n", t.path)
	fmt.Fprintf(w, "Type:\t%s\n", st.Type)
	fmt.Fprintf(w, "Length:\t%d\n", st.Length)
	fmt.Fprintf(w, "Owner:\t%s\n", st.Owner)
	fmt.Fprintf(w, "Group:\t%s\n", st.Group)
	fmt.Fprintf(w, "Permission:\t%s\n", st.Permission)
	fmt.Fprintf(w, "Replication:\t%d\n", st.Replication)
	fmt.Fprintf(w, "Block size:\t%d\n", st.BlockSize)
	fmt.Fprintf(w, "Modified:\t%s\n", st.Modified().Format(time.RFC3339))
	fmt.Fprintf(w, "Accessed:\t%s\n", st.Accessed().Format(time.RFC3339))
	return w.Flush()
}

func cmdDu(ctx context.Context, settings *config.ClientSettings, args []string) error {
	client, t, err := oneTarget(settings, args, "usage: du <url>")
	if err != nil {
		return err
	}
	sum, err := client.ContentSummary(ctx, t.path)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintf(w, "Path:\t%s\n", t.path)
	fmt.Fprintf(w, "Files:\t%d\n", sum.FileCount)
	fmt.Fprintf(w, "Directories:\t%d\n", sum.DirectoryCount)
	fmt.Fprintf(w, "Length:\t%d\n", sum.Length)
	fmt.Fprintf(w, "Space consumed:\t%d\n", sum.SpaceConsumed)
	return w.Flush()
}
