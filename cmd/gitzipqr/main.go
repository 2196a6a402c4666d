// Command gitzipqr turns a file or directory into a set of password-protected
// QR-code PNGs, and turns a directory of such PNGs back into the original
// bytes. Password collection and full argument parsing are a thin,
// script-friendly surface only: a real interactive prompt is outside this
// module's scope.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/nymora/gitzipqr/internal/config"
	"github.com/nymora/gitzipqr/internal/pipeline"
)

type passwordFlags [][]byte

func (p *passwordFlags) String() string {
	return fmt.Sprintf("%d password(s)", len(*p))
}

func (p *passwordFlags) Set(value string) error {
	*p = append(*p, []byte(value))
	return nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var err error
	switch os.Args[1] {
	case "encode":
		err = runEncode(ctx, os.Args[2:])
	case "decode":
		err = runDecode(ctx, os.Args[2:])
	default:
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "gitzipqr: %v\n", err)
		os.Exit(1)
	}
}

func runEncode(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("encode", flag.ExitOnError)
	var passwords passwordFlags
	fs.Var(&passwords, "password", "password (repeatable for multi-password KDF concatenation)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("usage: gitzipqr encode <input_path> [<output_dir>] [-password <pw> ...]")
	}
	input := fs.Arg(0)
	output := "."
	if fs.NArg() >= 2 {
		output = fs.Arg(1)
	}

	passwords = collectPasswords(passwords)
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}

	_, err = pipeline.New(cfg).Encode(ctx, input, output, passwords)
	return err
}

func runDecode(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("decode", flag.ExitOnError)
	var passwords passwordFlags
	fs.Var(&passwords, "password", "password (repeatable for multi-password KDF concatenation)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("usage: gitzipqr decode <input_path_or_dir> [<output_dir>] [-password <pw> ...]")
	}
	input := fs.Arg(0)
	output := "."
	if fs.NArg() >= 2 {
		output = fs.Arg(1)
	}

	passwords = collectPasswords(passwords)
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}

	_, err = pipeline.New(cfg).Decode(ctx, input, output, passwords)
	return err
}

// collectPasswords falls back to GITZIPQR_PASSWORD when no -password flag was
// given, so the tool remains scriptable without an interactive prompt.
func collectPasswords(flags passwordFlags) [][]byte {
	if len(flags) > 0 {
		return flags
	}
	if v, ok := os.LookupEnv("GITZIPQR_PASSWORD"); ok && v != "" {
		return [][]byte{[]byte(v)}
	}
	return nil
}

func printUsage() {
	fmt.Println("Usage: gitzipqr <command> [arguments]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  encode <input_path> [<output_dir>] [-password <pw> ...]")
	fmt.Println("  decode <input_path_or_dir> [<output_dir>] [-password <pw> ...]")
}
