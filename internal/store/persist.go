package store

import (
	"encoding/json"
	"os"
)

// atomicWriteJSON serializes v and writes it to path via write-to-temp +
// rename, per §4.1's atomic write protocol: a reader that opens path
// between renames sees either the pre- or post-state, never a torn write.
func atomicWriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	_ = f.Sync() // best effort
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}

	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp) // best-effort cleanup; prior state at path is untouched
		return err
	}
	return nil
}

// readJSON reads and unmarshals path into v. A missing file is not an
// error; callers check os.IsNotExist and fall back to an empty document.
func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// appendJSONLine appends one JSON-encoded line to path, creating it if
// necessary. Used for history.jsonl and archive.jsonl, which are never
// rewritten — only appended to.
func appendJSONLine(path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	data = append(data, '\n')
	_, err = f.Write(data)
	return err
}

// recoverTmpFile implements the crash-recovery behavior the distillation
// dropped (§12.1 of the full spec), grounded on original_source's
// CoordinatorState._recover_tmp_file: if path is missing but path+".tmp"
// holds valid JSON, or the .tmp is newer than path and still valid JSON,
// promote it by renaming over path. Returns true if it recovered a file,
// so the caller can log at Warn.
func recoverTmpFile(path string, probe func([]byte) bool) (bool, error) {
	tmp := path + ".tmp"
	tmpInfo, err := os.Stat(tmp)
	if err != nil {
		return false, nil // nothing to recover
	}

	tmpData, err := os.ReadFile(tmp)
	if err != nil || !probe(tmpData) {
		return false, nil // .tmp exists but isn't valid; leave both alone
	}

	realInfo, err := os.Stat(path)
	shouldRecover := false
	switch {
	case err != nil:
		shouldRecover = true // real file missing entirely
	case tmpInfo.ModTime().After(realInfo.ModTime()):
		shouldRecover = true // .tmp postdates the committed file: a rename was interrupted
	}
	if !shouldRecover {
		_ = os.Remove(tmp)
		return false, nil
	}

	if err := os.Rename(tmp, path); err != nil {
		return false, err
	}
	return true, nil
}

func validJSONObject(data []byte) bool {
	var v any
	return json.Unmarshal(data, &v) == nil
}

func ensureDir(dir string) error {
	return os.MkdirAll(dir, 0755)
}
