package types

import "encoding/json"

// MarshalJSON encodes the JobID as its raw multihash bytes, matching the
// wire codec's JSON body encoding (pkg/wire).
func (j JobID) MarshalJSON() ([]byte, error) {
	return json.Marshal(j.Bytes())
}

func (j *JobID) UnmarshalJSON(data []byte) error {
	var b []byte
	if err := json.Unmarshal(data, &b); err != nil {
		return err
	}
	if len(b) == 0 {
		*j = JobID{}
		return nil
	}
	id, err := JobIDFromBytes(b)
	if err != nil {
		return err
	}
	*j = id
	return nil
}

// MarshalJSON encodes the TaskID as its raw multihash bytes.
func (t TaskID) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Bytes())
}

func (t *TaskID) UnmarshalJSON(data []byte) error {
	var b []byte
	if err := json.Unmarshal(data, &b); err != nil {
		return err
	}
	if len(b) == 0 {
		*t = TaskID{}
		return nil
	}
	id, err := TaskIDFromBytes(b)
	if err != nil {
		return err
	}
	*t = id
	return nil
}
