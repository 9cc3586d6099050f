// Package socketfile manages the demo daemon's process-lifecycle
// bookkeeping: a lock file recording which process owns a port's
// socket, staleness detection, and log-file rotation. None of this is
// part of the core ipsc/jrpc transport, which already handles the
// bind-time stale-socket race at the descriptor level; this is an
// embedder-level concern, keyed by port so multiple daemons can run
// side by side.
package socketfile

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/advem/ipsc-go/ipsc"
)

// LockInfo is the JSON shape written to the lock file.
type LockInfo struct {
	PID        int    `json:"pid"`
	Port       uint16 `json:"port"`
	SocketPath string `json:"socketPath"`
	StartedAt  int64  `json:"startedAt"`
}

// LockPath returns the lock file path for a given port.
func LockPath(port uint16) string {
	return filepath.Join(os.TempDir(), fmt.Sprintf("ipscd.%d.lock", port))
}

// LogPath returns the log file path for a given port.
func LogPath(port uint16) string {
	return filepath.Join(os.TempDir(), fmt.Sprintf("ipscd.%d.log", port))
}

// WriteLock records this process as the owner of port's socket.
func WriteLock(port uint16, pid int) error {
	info := LockInfo{
		PID:        pid,
		Port:       port,
		SocketPath: ipsc.Address(port),
		StartedAt:  time.Now().Unix(),
	}
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(LockPath(port), data, 0o644)
}

// ReadLock returns nil, nil when no lock file exists for port.
func ReadLock(port uint16) (*LockInfo, error) {
	data, err := os.ReadFile(LockPath(port))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var info LockInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// RemoveLock deletes the lock file, treating "already gone" as success.
func RemoveLock(port uint16) error {
	err := os.Remove(LockPath(port))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// IsProcessAlive checks liveness via signal 0, which performs the usual
// permission check without delivering a signal.
func IsProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	return syscall.Kill(pid, 0) == nil
}

// TruncateLog keeps only the last maxSize/10 bytes of a log file once it
// exceeds maxSize, prefixing the kept portion with a truncation marker.
func TruncateLog(port uint16, maxSize int64) error {
	path := LogPath(port)
	stat, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if stat.Size() <= maxSize {
		return nil
	}

	keep := maxSize / 10
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.Seek(stat.Size()-keep, io.SeekStart); err != nil {
		return err
	}
	remaining := make([]byte, keep)
	n, err := f.Read(remaining)
	if err != nil && err != io.EOF {
		return err
	}

	header := fmt.Sprintf("=== log truncated at %s ===\n", time.Now().Format(time.RFC3339))
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append([]byte(header), remaining[:n]...), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
