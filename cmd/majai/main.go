package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/MartinGeisse/majai"
	"github.com/MartinGeisse/majai/internal/logging"
	"github.com/MartinGeisse/majai/internal/version"
)

func main() {
	doMain(os.Stdout, os.Stderr, os.Exit)
}

// doMain is separated out for the purpose of unit testing.
func doMain(stdOut io.Writer, stdErr io.Writer, exit func(code int)) {
	flag.CommandLine.SetOutput(stdErr)

	var help bool
	flag.BoolVar(&help, "h", false, "print usage")

	flag.Parse()

	if help || flag.NArg() == 0 {
		printUsage(stdErr)
		exit(0)
	}

	subCmd := flag.Arg(0)
	switch subCmd {
	case "compile":
		doCompile(flag.Args()[1:], stdOut, stdErr, exit)
	case "layout":
		doLayout(flag.Args()[1:], stdOut, stdErr, exit)
	case "version":
		fmt.Fprintln(stdOut, version.GetMajaiVersion())
		exit(0)
	default:
		fmt.Fprintln(stdErr, "invalid command")
		printUsage(stdErr)
		exit(1)
	}
}

// compileFlags are the flags shared by the compile and layout commands.
type compileFlags struct {
	help      bool
	project   string
	classPath sliceFlag
	prologue  string
	output    string
	verbosity int
	logFile   string
	logScopes logScopesFlag
}

func newCompileFlags(name string, stdErr io.Writer) (*flag.FlagSet, *compileFlags) {
	flags := flag.NewFlagSet(name, flag.ContinueOnError)
	flags.SetOutput(stdErr)

	f := &compileFlags{logScopes: logScopesFlag(logging.LogScopeAll)}
	flags.BoolVar(&f.help, "h", false, "print usage")
	flags.StringVar(&f.project, "project", "", "Directory holding "+majai.ProjectFileName+
		". Defaults to the current directory, where the file is optional.")
	flags.Var(&f.classPath, "cp", "Directories to search for class files, separated by the OS path list separator. "+
		"This may be specified multiple times and replaces the class path of the project file.")
	flags.StringVar(&f.prologue, "prologue", "", "Assembly file copied to the start of the output.")
	flags.StringVar(&f.output, "o", "", "Output file. Defaults to the project setting, then to stdout.")
	flags.IntVar(&f.verbosity, "v", 0, "Log verbosity: 0 logs errors, each step adds a level, -1 disables logging.")
	flags.StringVar(&f.logFile, "logfile", "", "File to log to instead of stderr.")
	flags.Var(&f.logScopes, "log",
		"A comma-separated list of scopes to log. Supported values: all,load,resolve,compile,translate,objects")
	return flags, f
}

// config combines the project file with the command line, which takes precedence. It returns
// the project, which is nil when there is none.
func (f *compileFlags) config(entry string) (*majai.CompilerConfig, *majai.ProjectConfig, error) {
	dir := f.project
	if dir == "" {
		dir = "."
	}
	c := majai.NewCompilerConfig()
	project, err := majai.LoadProjectConfig(dir)
	if err == nil {
		c = project.CompilerConfig(c)
	} else if f.project != "" || !errors.Is(err, majai.ErrNoProject) {
		return nil, nil, err
	}

	if len(f.classPath) > 0 {
		var dirs []string
		for _, cp := range f.classPath {
			dirs = append(dirs, filepath.SplitList(cp)...)
		}
		c = c.WithClassPath(dirs...)
	}
	if f.prologue != "" {
		c = c.WithPrologueFile(f.prologue)
	}
	if entry != "" {
		c = c.WithEntryClass(entry)
	}
	return c, project, nil
}

func doCompile(args []string, stdOut, stdErr io.Writer, exit func(code int)) {
	flags, f := newCompileFlags("compile", stdErr)
	if err := flags.Parse(args); err != nil {
		exit(1)
	}

	if f.help {
		printCompileUsage(stdErr, "compile", flags)
		exit(0)
	}

	c, project, ok := setup(flags, f, stdErr)
	if !ok {
		printCompileUsage(stdErr, "compile", flags)
		exit(1)
	}

	output := f.output
	if output == "" && project != nil {
		output = project.Path(project.Compile.Output)
	}
	err := writeOutput(output, stdOut, func(w io.Writer) error {
		_, err := majai.Compile(context.Background(), c, w)
		return err
	})
	if err != nil {
		fmt.Fprintf(stdErr, "error compiling %s: %v\n", c.EntryClass(), err)
		exit(1)
	}
	exit(0)
}

func doLayout(args []string, stdOut, stdErr io.Writer, exit func(code int)) {
	flags, f := newCompileFlags("layout", stdErr)
	if err := flags.Parse(args); err != nil {
		exit(1)
	}

	if f.help {
		printCompileUsage(stdErr, "layout", flags)
		exit(0)
	}

	c, project, ok := setup(flags, f, stdErr)
	if !ok {
		printCompileUsage(stdErr, "layout", flags)
		exit(1)
	}

	p, err := majai.Compile(context.Background(), c, io.Discard)
	if err != nil {
		fmt.Fprintf(stdErr, "error compiling %s: %v\n", c.EntryClass(), err)
		exit(1)
	}

	output := f.output
	if output == "" && project != nil {
		output = project.Path(project.Layout.Output)
	}
	if err = writeOutput(output, stdOut, p.WriteLayout); err != nil {
		fmt.Fprintf(stdErr, "error writing layout: %v\n", err)
		exit(1)
	}
	exit(0)
}

// setup configures logging and builds the compiler configuration. It reports problems to stdErr
// and returns false on failure.
func setup(flags *flag.FlagSet, f *compileFlags, stdErr io.Writer) (*majai.CompilerConfig, *majai.ProjectConfig, bool) {
	logging.Configure(f.verbosity, f.logFile, logging.LogScopes(f.logScopes))

	if flags.NArg() > 1 {
		fmt.Fprintln(stdErr, "too many arguments")
		return nil, nil, false
	}
	c, project, err := f.config(flags.Arg(0))
	if err != nil {
		fmt.Fprintf(stdErr, "invalid project: %v\n", err)
		return nil, nil, false
	}
	if c.EntryClass() == "" {
		fmt.Fprintln(stdErr, "missing entry class")
		return nil, nil, false
	}
	return c, project, true
}

// writeOutput runs write against the file at path, or against stdOut if path is empty. The file
// is removed if write fails.
func writeOutput(path string, stdOut io.Writer, write func(io.Writer) error) error {
	if path == "" {
		return write(stdOut)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err = write(file); err != nil {
		_ = file.Close()
		_ = os.Remove(path)
		return err
	}
	return file.Close()
}

func printUsage(stdErr io.Writer) {
	fmt.Fprintln(stdErr, "majai CLI")
	fmt.Fprintln(stdErr)
	fmt.Fprintln(stdErr, "Usage:\n  majai <command>")
	fmt.Fprintln(stdErr)
	fmt.Fprintln(stdErr, "Commands:")
	fmt.Fprintln(stdErr, "  compile\tCompiles a class and its dependencies to RISC-V assembly")
	fmt.Fprintln(stdErr, "  layout\tWrites the field and vtable layout of a program as TOML")
	fmt.Fprintln(stdErr, "  version\tDisplays the version of majai CLI")
}

func printCompileUsage(stdErr io.Writer, cmd string, flags *flag.FlagSet) {
	fmt.Fprintln(stdErr, "majai CLI")
	fmt.Fprintln(stdErr)
	fmt.Fprintf(stdErr, "Usage:\n  majai %s <options> [entry class]\n", cmd)
	fmt.Fprintln(stdErr)
	fmt.Fprintln(stdErr, "Options:")
	flags.PrintDefaults()
}

type sliceFlag []string

func (f *sliceFlag) String() string {
	return strings.Join(*f, ",")
}

func (f *sliceFlag) Set(s string) error {
	*f = append(*f, s)
	return nil
}

type logScopesFlag logging.LogScopes

func (f *logScopesFlag) String() string {
	return logging.LogScopes(*f).String()
}

func (f *logScopesFlag) Set(input string) error {
	scopes, err := logging.ParseLogScopes(input)
	if err != nil {
		return err
	}
	*f = logScopesFlag(scopes)
	return nil
}
