package manifest

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func writeManifest(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[program]
path = "day09.txt"

[run]
inputs = [1]
trace = true
memory-limit = 4096
step-limit = 1000000

[amplifier]
phases = [9, 8, 7, 6, 5]
feedback = true
buffer = 4

[robot]
start = 1

[ascii]
main = "A,B,A"
a = "L,12"
b = "R,4"
c = "L,8"
video = true

[beam]
square = 10

[store]
path = "/var/lib/intcode/runs.db"

[server]
addr = ":9000"
workers = 8
step-limit = 5000

[log]
verbosity = 2
path = "intcode.log"
`)

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if got := m.ProgramPath(); got != filepath.Join(m.Dir, "day09.txt") {
		t.Errorf("ProgramPath() = %q, want day09.txt under %q", got, m.Dir)
	}
	if !reflect.DeepEqual(m.Run.Inputs, []int64{1}) {
		t.Errorf("run inputs = %v, want [1]", m.Run.Inputs)
	}
	if !m.Run.Trace {
		t.Error("run trace = false, want true")
	}
	if m.Run.MemoryLimit != 4096 || m.Run.StepLimit != 1000000 {
		t.Errorf("run limits = %d, %d, want 4096, 1000000", m.Run.MemoryLimit, m.Run.StepLimit)
	}
	if !reflect.DeepEqual(m.Amplifier.Phases, []int64{9, 8, 7, 6, 5}) {
		t.Errorf("amplifier phases = %v", m.Amplifier.Phases)
	}
	if !m.Amplifier.Feedback || m.Amplifier.Buffer != 4 {
		t.Errorf("amplifier = %+v", m.Amplifier)
	}
	if m.Robot.Start != 1 {
		t.Errorf("robot start = %d, want 1", m.Robot.Start)
	}
	if m.ASCII.Main != "A,B,A" || m.ASCII.C != "L,8" || !m.ASCII.Video {
		t.Errorf("ascii = %+v", m.ASCII)
	}
	if m.Beam.Square != 10 {
		t.Errorf("beam square = %d, want 10", m.Beam.Square)
	}
	if m.StorePath() != "/var/lib/intcode/runs.db" {
		t.Errorf("StorePath() = %q, want absolute path unchanged", m.StorePath())
	}
	if m.Server.Addr != ":9000" || m.Server.Workers != 8 || m.Server.StepLimit != 5000 {
		t.Errorf("server = %+v", m.Server)
	}
	if m.Log.Verbosity != 2 || m.LogPath() != filepath.Join(m.Dir, "intcode.log") {
		t.Errorf("log = %+v, path %q", m.Log, m.LogPath())
	}
}

func TestLoadManifestDefaults(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[program]
path = "input.txt"
`)

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if !reflect.DeepEqual(m.Amplifier.Phases, []int64{0, 1, 2, 3, 4}) {
		t.Errorf("default phases = %v, want [0 1 2 3 4]", m.Amplifier.Phases)
	}
	if m.Beam.Width != 50 || m.Beam.Height != 50 || m.Beam.Square != 100 {
		t.Errorf("default beam = %+v", m.Beam)
	}
	if m.Server.Addr != "localhost:8765" || m.Server.Workers != 4 {
		t.Errorf("default server = %+v", m.Server)
	}
	if m.Run.StepLimit != 0 || m.Server.StepLimit != DefaultServerStepLimit {
		t.Errorf("default step limits = run %d, server %d, want 0, %d",
			m.Run.StepLimit, m.Server.StepLimit, DefaultServerStepLimit)
	}
	if m.StorePath() != filepath.Join(m.Dir, ".intcode", "runs.db") {
		t.Errorf("default StorePath() = %q", m.StorePath())
	}
	if m.LogPath() != "" {
		t.Errorf("default LogPath() = %q, want stderr", m.LogPath())
	}
}

func TestFeedbackDefaultPhases(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "[amplifier]\nfeedback = true\n")

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !reflect.DeepEqual(m.Amplifier.Phases, []int64{5, 6, 7, 8, 9}) {
		t.Errorf("feedback phases = %v, want [5 6 7 8 9]", m.Amplifier.Phases)
	}
}

func TestLoadRejects(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"unknown key", "[run]\ntrase = true\n", "unknown key"},
		{"bad start", "[robot]\nstart = 3\n", "robot.start"},
		{"repeated phase", "[amplifier]\nphases = [1, 1, 2]\n", "repeats 1"},
		{"negative limit", "[run]\nstep-limit = -1\n", "step-limit"},
		{"negative server limit", "[server]\nstep-limit = -1\n", "server.step-limit"},
		{"syntax", "[run\n", "parse error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeManifest(t, dir, tt.content)
			_, err := Load(dir)
			if err == nil {
				t.Fatal("Load succeeded, want error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestFindAndLoad(t *testing.T) {
	dir := t.TempDir()
	subDir := filepath.Join(dir, "a", "b", "c")
	if err := os.MkdirAll(subDir, 0755); err != nil {
		t.Fatal(err)
	}
	writeManifest(t, dir, "[program]\npath = \"found.txt\"\n")

	// Should find manifest when starting from a deep subdirectory
	m, err := FindAndLoad(subDir)
	if err != nil {
		t.Fatalf("FindAndLoad failed: %v", err)
	}
	if m == nil {
		t.Fatal("FindAndLoad returned nil")
	}
	if m.Program.Path != "found.txt" {
		t.Errorf("program path = %q, want found.txt", m.Program.Path)
	}
}

func TestFindAndLoadNotFound(t *testing.T) {
	dir := t.TempDir()
	m, err := FindAndLoad(dir)
	if err != nil {
		t.Fatalf("FindAndLoad error: %v", err)
	}
	if m != nil {
		t.Error("expected nil manifest when no intcode.toml exists")
	}
}

func TestWriteRoundTrip(t *testing.T) {
	dir := t.TempDir()
	m := Default()
	m.Program.Path = "prog.txt"
	m.Run.Inputs = []int64{5}

	if err := Write(dir, m); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := Write(dir, m); err == nil {
		t.Error("Write overwrote an existing manifest")
	}

	loaded, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Program.Path != "prog.txt" || !reflect.DeepEqual(loaded.Run.Inputs, []int64{5}) {
		t.Errorf("loaded = %+v", loaded)
	}
	if loaded.Server.Addr != m.Server.Addr {
		t.Errorf("server addr = %q, want %q", loaded.Server.Addr, m.Server.Addr)
	}
}
