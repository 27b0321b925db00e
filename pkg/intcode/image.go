package intcode

import (
	"crypto/sha256"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// ImageVersion is the current image format version.
// Increment when making incompatible changes to the format.
const ImageVersion uint16 = 1

// Image is a program together with the inputs it is meant to run with.
// It is the unit stored and exchanged by the store and the CLI.
type Image struct {
	Version uint16  `cbor:"1,keyasint"`
	Program []int64 `cbor:"2,keyasint"`
	Inputs  []int64 `cbor:"3,keyasint,omitempty"`
}

// Snapshot is the encoded form of a Result.
type Snapshot struct {
	Version uint16  `cbor:"1,keyasint"`
	Memory  []int64 `cbor:"2,keyasint"`
	Output  []int64 `cbor:"3,keyasint,omitempty"`
	Steps   int64   `cbor:"4,keyasint,omitempty"`
}

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("intcode: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// MarshalImage serializes a program and its inputs to canonical CBOR.
func MarshalImage(program, inputs []int64) ([]byte, error) {
	return cborEncMode.Marshal(&Image{
		Version: ImageVersion,
		Program: program,
		Inputs:  inputs,
	})
}

// UnmarshalImage deserializes an Image from CBOR bytes.
func UnmarshalImage(data []byte) (*Image, error) {
	var img Image
	if err := cbor.Unmarshal(data, &img); err != nil {
		return nil, fmt.Errorf("intcode: unmarshal image: %w", err)
	}
	if img.Version != ImageVersion {
		return nil, fmt.Errorf("intcode: image version %d, want %d", img.Version, ImageVersion)
	}
	return &img, nil
}

// ProgramHash returns the content hash of a program: the SHA-256 of its
// canonical CBOR image without inputs.
func ProgramHash(program []int64) ([32]byte, error) {
	data, err := MarshalImage(program, nil)
	if err != nil {
		return [32]byte{}, err
	}
	return sha256.Sum256(data), nil
}

// MarshalResult serializes a Result to canonical CBOR.
func MarshalResult(r *Result) ([]byte, error) {
	return cborEncMode.Marshal(&Snapshot{
		Version: ImageVersion,
		Memory:  r.Memory,
		Output:  r.Output,
		Steps:   r.Steps,
	})
}

// UnmarshalResult deserializes a Result from CBOR bytes.
func UnmarshalResult(data []byte) (*Result, error) {
	var s Snapshot
	if err := cbor.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("intcode: unmarshal result: %w", err)
	}
	return &Result{Memory: s.Memory, Output: s.Output, Steps: s.Steps}, nil
}
