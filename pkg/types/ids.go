package types

import (
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/multiformats/go-multihash"
)

// DefaultHashFunc is the multihash function used to derive JobID and TaskID.
// SHA2-256 matches the original implementation's default digest.
const DefaultHashFunc = multihash.SHA2_256

// u128LEWidth is the width, in bytes, of the little-endian integer
// original_source/balthamisc/src/job.rs's job_id/task_id encode the
// nonce and argument index as (Rust u128::to_le_bytes()). Go has no
// native 128-bit integer; every nonce/index this module produces fits in
// a uint16, so the low 2 bytes carry the value and the remaining 14 are
// the zero-extension a wider Rust integer would have on the high end.
const u128LEWidth = 16

// putUint128LE zero-extends v into a u128LEWidth-byte little-endian
// buffer, matching Rust's u128::to_le_bytes() for values that fit in a
// uint16.
func putUint128LE(v uint16) []byte {
	buf := make([]byte, u128LEWidth)
	binary.LittleEndian.PutUint16(buf, v)
	return buf
}

// JobID uniquely identifies a job. It is a multihash of
// (sender_address ‖ LE128(nonce)), so it is both content-addressed and
// collision-resistant: see NewJobID.
type JobID struct {
	mh multihash.Multihash
}

// TaskID uniquely identifies one task within a job's argument vector. It is
// a multihash of (job_id.digest ‖ LE128(index) ‖ argument): see NewTaskID.
type TaskID struct {
	mh multihash.Multihash
}

// NewJobID computes the JobID for a (sender, nonce) pair.
//
//	job_id = hash(sender ‖ LE128(nonce))
//
// matching original_source/balthamisc/src/job.rs's job_id, which hashes
// the nonce as a 16-byte little-endian u128.
func NewJobID(sender common.Address, nonce uint16) (JobID, error) {
	buf := make([]byte, 0, len(sender)+u128LEWidth)
	buf = append(buf, sender[:]...)
	buf = append(buf, putUint128LE(nonce)...)

	mh, err := multihash.Sum(buf, DefaultHashFunc, -1)
	if err != nil {
		return JobID{}, fmt.Errorf("hash job id: %w", err)
	}
	return JobID{mh: mh}, nil
}

// NewTaskID computes the TaskID for the index-th argument of a job.
//
//	task_id = hash(job_id.digest ‖ LE128(index) ‖ argument)
//
// matching original_source/balthamisc/src/job.rs's task_id, which hashes
// the argument index as a 16-byte little-endian u128.
func NewTaskID(job JobID, index uint16, argument []byte) (TaskID, error) {
	digest, err := job.Digest()
	if err != nil {
		return TaskID{}, fmt.Errorf("decode job id: %w", err)
	}

	buf := make([]byte, 0, len(digest)+u128LEWidth+len(argument))
	buf = append(buf, digest...)
	buf = append(buf, putUint128LE(index)...)
	buf = append(buf, argument...)

	mh, err := multihash.Sum(buf, DefaultHashFunc, -1)
	if err != nil {
		return TaskID{}, fmt.Errorf("hash task id: %w", err)
	}
	return TaskID{mh: mh}, nil
}

// Digest returns the raw hash digest (without the multihash type/length
// prefix), matching Rust's Multihash::digest() used by the original
// task_id derivation.
func (j JobID) Digest() ([]byte, error) {
	decoded, err := multihash.Decode(j.mh)
	if err != nil {
		return nil, err
	}
	return decoded.Digest, nil
}

// Bytes returns the raw multihash bytes, suitable for wire transport.
func (j JobID) Bytes() []byte { return []byte(j.mh) }

// IsZero reports whether the JobID was never set.
func (j JobID) IsZero() bool { return len(j.mh) == 0 }

func (j JobID) String() string { return j.mh.B58String() }

// JobIDFromBytes reconstructs a JobID from its wire bytes.
func JobIDFromBytes(b []byte) (JobID, error) {
	mh, err := multihash.Cast(b)
	if err != nil {
		return JobID{}, fmt.Errorf("cast job id: %w", err)
	}
	return JobID{mh: mh}, nil
}

// Digest returns the raw hash digest (without the multihash type/length
// prefix), matching Rust's Multihash::digest() used by the original
// task_id derivation.
func (t TaskID) Digest() ([]byte, error) {
	decoded, err := multihash.Decode(t.mh)
	if err != nil {
		return nil, err
	}
	return decoded.Digest, nil
}

// Bytes returns the raw multihash bytes, suitable for wire transport.
func (t TaskID) Bytes() []byte { return []byte(t.mh) }

func (t TaskID) IsZero() bool { return len(t.mh) == 0 }

func (t TaskID) String() string { return t.mh.B58String() }

// TaskIDFromBytes reconstructs a TaskID from its wire bytes.
func TaskIDFromBytes(b []byte) (TaskID, error) {
	mh, err := multihash.Cast(b)
	if err != nil {
		return TaskID{}, fmt.Errorf("cast task id: %w", err)
	}
	return TaskID{mh: mh}, nil
}
