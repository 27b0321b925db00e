// Package manifest handles intcode.toml project configuration.
package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// FileName is the configuration file looked up by Load and FindAndLoad.
const FileName = "intcode.toml"

// Manifest represents an intcode.toml configuration.
type Manifest struct {
	Program   Program   `toml:"program"`
	Run       Run       `toml:"run"`
	Amplifier Amplifier `toml:"amplifier"`
	Robot     Robot     `toml:"robot"`
	ASCII     ASCII     `toml:"ascii"`
	Beam      Beam      `toml:"beam"`
	Store     Store     `toml:"store"`
	Server    Server    `toml:"server"`
	Log       Log       `toml:"log"`

	// Dir is the directory containing the intcode.toml file (set at load time).
	Dir string `toml:"-"`
}

// Program names the Intcode program text file.
type Program struct {
	Path string `toml:"path"`
}

// Run configures plain runs.
type Run struct {
	Inputs      []int64 `toml:"inputs"`
	Trace       bool    `toml:"trace"`
	MemoryLimit int64   `toml:"memory-limit"`
	StepLimit   int64   `toml:"step-limit"`
}

// Amplifier configures the amplifier pipeline search.
type Amplifier struct {
	Phases   []int64 `toml:"phases"`
	Feedback bool    `toml:"feedback"`
	Buffer   int     `toml:"buffer"`
	Initial  int64   `toml:"initial"`
}

// Robot configures the hull-painting robot.
type Robot struct {
	Start int64 `toml:"start"`
}

// ASCII configures the vacuum robot's movement routine.
type ASCII struct {
	Main  string `toml:"main"`
	A     string `toml:"a"`
	B     string `toml:"b"`
	C     string `toml:"c"`
	Video bool   `toml:"video"`
}

// Beam configures the tractor beam scan.
type Beam struct {
	Width  int64 `toml:"width"`
	Height int64 `toml:"height"`
	Square int64 `toml:"square"`
}

// Store configures the run history database.
type Store struct {
	Path string `toml:"path"`
}

// Server configures the RPC server.
type Server struct {
	Addr    string `toml:"addr"`
	Workers int64  `toml:"workers"`
	// StepLimit bounds every served run, overriding run.step-limit.
	StepLimit int64 `toml:"step-limit"`
}

// DefaultServerStepLimit bounds served runs unless the manifest says otherwise.
const DefaultServerStepLimit = 100_000_000

// Log configures logging.
type Log struct {
	Verbosity int    `toml:"verbosity"`
	Path      string `toml:"path"`
}

// Default returns a manifest with every default applied.
func Default() *Manifest {
	m := &Manifest{}
	m.applyDefaults()
	return m
}

func (m *Manifest) applyDefaults() {
	if len(m.Amplifier.Phases) == 0 {
		if m.Amplifier.Feedback {
			m.Amplifier.Phases = []int64{5, 6, 7, 8, 9}
		} else {
			m.Amplifier.Phases = []int64{0, 1, 2, 3, 4}
		}
	}
	if m.Beam.Width == 0 {
		m.Beam.Width = 50
	}
	if m.Beam.Height == 0 {
		m.Beam.Height = 50
	}
	if m.Beam.Square == 0 {
		m.Beam.Square = 100
	}
	if m.Store.Path == "" {
		m.Store.Path = filepath.Join(".intcode", "runs.db")
	}
	if m.Server.Addr == "" {
		m.Server.Addr = "localhost:8765"
	}
	if m.Server.Workers == 0 {
		m.Server.Workers = 4
	}
	if m.Server.StepLimit == 0 {
		m.Server.StepLimit = DefaultServerStepLimit
	}
}

// Validate reports settings that cannot be used.
func (m *Manifest) Validate() error {
	var errs []error
	if m.Run.MemoryLimit < 0 {
		errs = append(errs, fmt.Errorf("run.memory-limit must not be negative"))
	}
	if m.Run.StepLimit < 0 {
		errs = append(errs, fmt.Errorf("run.step-limit must not be negative"))
	}
	if m.Amplifier.Buffer < 0 {
		errs = append(errs, fmt.Errorf("amplifier.buffer must not be negative"))
	}
	if m.Robot.Start != 0 && m.Robot.Start != 1 {
		errs = append(errs, fmt.Errorf("robot.start must be 0 or 1, got %d", m.Robot.Start))
	}
	if m.Beam.Width < 0 || m.Beam.Height < 0 || m.Beam.Square < 0 {
		errs = append(errs, fmt.Errorf("beam dimensions must not be negative"))
	}
	if m.Server.Workers < 0 {
		errs = append(errs, fmt.Errorf("server.workers must not be negative"))
	}
	if m.Server.StepLimit < 0 {
		errs = append(errs, fmt.Errorf("server.step-limit must not be negative"))
	}
	seen := make(map[int64]bool)
	for _, p := range m.Amplifier.Phases {
		if seen[p] {
			errs = append(errs, fmt.Errorf("amplifier.phases repeats %d", p))
		}
		seen[p] = true
	}
	return errors.Join(errs...)
}

// Load parses an intcode.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	md, err := toml.Decode(string(data), &m)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown key %q in %s", undecoded[0].String(), path)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	m.applyDefaults()
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", path, err)
	}
	return &m, nil
}

// FindAndLoad walks up from startDir to find an intcode.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// Write encodes m as dir/intcode.toml, refusing to overwrite an existing file.
func Write(dir string, m *Manifest) error {
	path := filepath.Join(dir, FileName)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return fmt.Errorf("cannot create %s: %w", path, err)
	}
	if err := toml.NewEncoder(f).Encode(m); err != nil {
		f.Close()
		return fmt.Errorf("cannot write %s: %w", path, err)
	}
	return f.Close()
}

// resolve makes p absolute relative to the manifest directory.
func (m *Manifest) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) || m.Dir == "" {
		return p
	}
	return filepath.Join(m.Dir, p)
}

// ProgramPath returns the program file path, resolved against Dir.
func (m *Manifest) ProgramPath() string {
	return m.resolve(m.Program.Path)
}

// StorePath returns the store database path, resolved against Dir.
func (m *Manifest) StorePath() string {
	return m.resolve(m.Store.Path)
}

// LogPath returns the log file path, or "" for stderr.
func (m *Manifest) LogPath() string {
	return m.resolve(m.Log.Path)
}
