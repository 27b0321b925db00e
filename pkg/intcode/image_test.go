package intcode

import (
	"reflect"
	"testing"
)

func TestImageCBOR(t *testing.T) {
	program := []int64{109, 1, 204, -1, 1001, 100, 1, 100, 1008, 100, 16, 101, 1006, 101, 0, 99}
	data, err := MarshalImage(program, []int64{5, -7})
	if err != nil {
		t.Fatalf("MarshalImage: %v", err)
	}

	img, err := UnmarshalImage(data)
	if err != nil {
		t.Fatalf("UnmarshalImage: %v", err)
	}
	if img.Version != ImageVersion {
		t.Errorf("Version = %d, want %d", img.Version, ImageVersion)
	}
	if !reflect.DeepEqual(img.Program, program) {
		t.Errorf("Program = %v, want %v", img.Program, program)
	}
	if !reflect.DeepEqual(img.Inputs, []int64{5, -7}) {
		t.Errorf("Inputs = %v, want [5 -7]", img.Inputs)
	}
}

func TestUnmarshalImageRejectsGarbage(t *testing.T) {
	if _, err := UnmarshalImage([]byte{0xff, 0x00}); err == nil {
		t.Error("UnmarshalImage accepted garbage")
	}
}

func TestProgramHashIgnoresInputsAndIsStable(t *testing.T) {
	a, err := ProgramHash([]int64{1, 0, 0, 0, 99})
	if err != nil {
		t.Fatal(err)
	}
	b, _ := ProgramHash([]int64{1, 0, 0, 0, 99})
	c, _ := ProgramHash([]int64{2, 0, 0, 0, 99})
	if a != b {
		t.Error("ProgramHash is not deterministic")
	}
	if a == c {
		t.Error("different programs share a hash")
	}
}

func TestResultCBOR(t *testing.T) {
	res := mustRun(t, []int64{3, 9, 8, 9, 10, 9, 4, 9, 99, -1, 8}, 8)
	data, err := MarshalResult(res)
	if err != nil {
		t.Fatalf("MarshalResult: %v", err)
	}
	got, err := UnmarshalResult(data)
	if err != nil {
		t.Fatalf("UnmarshalResult: %v", err)
	}
	if !reflect.DeepEqual(got.Memory, res.Memory) {
		t.Errorf("Memory = %v, want %v", got.Memory, res.Memory)
	}
	if !reflect.DeepEqual(got.Output, res.Output) {
		t.Errorf("Output = %v, want %v", got.Output, res.Output)
	}
	if got.Steps != res.Steps {
		t.Errorf("Steps = %d, want %d", got.Steps, res.Steps)
	}
}
