// Intcode CLI - runs Intcode programs, their devices, and the run server
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/chazu/intcode/manifest"
	"github.com/chazu/intcode/pkg/intcode"
)

var log = commonlog.GetLogger("intcode.cli")

// env is what every command needs beyond its own arguments.
type env struct {
	m     *manifest.Manifest
	stdin io.Reader
	out   io.Writer
}

type command struct {
	name    string
	summary string
	run     func(args []string, e *env) error
}

var commands = []command{
	{"run", "Run a program with inputs and print its output", cmdRun},
	{"amp", "Find the phase settings giving the largest amplifier signal", cmdAmp},
	{"paint", "Run the hull-painting robot", cmdPaint},
	{"arcade", "Run the arcade cabinet", cmdArcade},
	{"ascii", "Read the scaffold camera and drive the vacuum robot", cmdASCII},
	{"beam", "Scan the tractor beam", cmdBeam},
	{"disasm", "Disassemble a program", cmdDisasm},
	{"serve", "Start the run server (Connect HTTP/JSON)", cmdServe},
	{"history", "List stored programs or the runs of one program", cmdHistory},
	{"init", "Write a default " + manifest.FileName + " in the current directory", cmdInit},
}

// verbosity counts repeated -v flags.
type verbosity int

func (v *verbosity) String() string { return strconv.Itoa(int(*v)) }

func (v *verbosity) Set(s string) error {
	if s == "true" {
		*v++
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	*v = verbosity(n)
	return nil
}

func (v *verbosity) IsBoolFlag() bool { return true }

func main() {
	var verbose verbosity
	flag.Var(&verbose, "v", "Verbose output (repeat for more)")
	dir := flag.String("C", ".", "Look for "+manifest.FileName+" starting in this directory")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: intcode [options] <command> [command options] [program]\n\n")
		fmt.Fprintf(os.Stderr, "Runs Intcode programs. The program is read from the given path, from\n")
		fmt.Fprintf(os.Stderr, "[program].path in %s, or from stdin when the path is \"-\".\n\n", manifest.FileName)
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nCommands:\n")
		for _, c := range commands {
			fmt.Fprintf(os.Stderr, "  %-8s %s\n", c.name, c.summary)
		}
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  intcode run -i 1 day09.txt        # Run with input 1\n")
		fmt.Fprintf(os.Stderr, "  intcode amp -feedback day07.txt   # Feedback loop phase search\n")
		fmt.Fprintf(os.Stderr, "  intcode arcade -free day13.txt    # Play the game to the end\n")
		fmt.Fprintf(os.Stderr, "  intcode serve -addr :8765         # Serve RunService\n")
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	m, err := manifest.FindAndLoad(*dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if m == nil {
		m = manifest.Default()
	}

	configureLogging(m, int(verbose))

	name, args := flag.Arg(0), flag.Args()[1:]
	for _, c := range commands {
		if c.name != name {
			continue
		}
		if err := c.run(args, &env{m: m, stdin: os.Stdin, out: os.Stdout}); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}
	fmt.Fprintf(os.Stderr, "Unknown command: %s\n", name)
	flag.Usage()
	os.Exit(2)
}

func configureLogging(m *manifest.Manifest, extra int) {
	var path *string
	if p := m.LogPath(); p != "" {
		path = &p
	}
	commonlog.Configure(m.Log.Verbosity+extra, path)
}

// loadProgram reads the program named by args, falling back to the
// manifest's program path.
func loadProgram(fs *flag.FlagSet, e *env) ([]int64, string, error) {
	path := e.m.ProgramPath()
	switch fs.NArg() {
	case 0:
	case 1:
		path = fs.Arg(0)
	default:
		return nil, "", fmt.Errorf("%s: expected one program, got %d arguments", fs.Name(), fs.NArg())
	}
	if path == "" {
		return nil, "", fmt.Errorf("%s: no program given and no [program].path in %s", fs.Name(), manifest.FileName)
	}

	if path == "-" {
		p, err := intcode.ReadProgram(e.stdin)
		return p, "stdin", err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("cannot read %s: %w", path, err)
	}
	defer f.Close()
	p, err := intcode.ReadProgram(f)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", path, err)
	}
	log.Debugf("loaded %d words from %s", len(p), path)
	return p, path, nil
}

// intList is a comma-separated list of integers given as a flag.
type intList []int64

func (l *intList) String() string {
	parts := make([]string, len(*l))
	for i, v := range *l {
		parts[i] = strconv.FormatInt(v, 10)
	}
	return strings.Join(parts, ",")
}

func (l *intList) Set(s string) error {
	var out []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid integer %q", part)
		}
		out = append(out, v)
	}
	*l = append(*l, out...)
	return nil
}

// runOptions turns the manifest's [run] section into machine options.
func runOptions(m *manifest.Manifest, trace bool) []intcode.Option {
	var opts []intcode.Option
	if trace || m.Run.Trace {
		opts = append(opts, intcode.WithTrace())
	}
	if m.Run.MemoryLimit > 0 {
		opts = append(opts, intcode.WithMemoryLimit(m.Run.MemoryLimit))
	}
	if m.Run.StepLimit > 0 {
		opts = append(opts, intcode.WithStepLimit(m.Run.StepLimit))
	}
	return opts
}

// newFlagSet creates a subcommand flag set that reports errors instead of
// exiting.
func newFlagSet(name, usage string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: intcode %s %s\n\nOptions:\n", name, usage)
		fs.PrintDefaults()
	}
	return fs
}
