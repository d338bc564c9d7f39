//go:build unix

package server

import (
	"os/exec"
	"syscall"
)

// setProcessGroup makes the child the leader of its own process group so
// signals reach wrapper scripts and the Java process they spawn.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// signalGroup sends a signal to the child process group, falling back to
// the direct PID when the group signal fails.
func signalGroup(pid int, sig syscall.Signal) error {
	if err := syscall.Kill(-pid, sig); err == nil {
		return nil
	}
	procLog.WithField("pid", pid).Debug("Process group signal failed, trying direct PID")
	return syscall.Kill(pid, sig)
}

func freezeProcess(pid int) error {
	return signalGroup(pid, syscall.SIGSTOP)
}

func thawProcess(pid int) error {
	return signalGroup(pid, syscall.SIGCONT)
}

func terminateProcess(pid int) error {
	return signalGroup(pid, syscall.SIGTERM)
}

func killProcess(pid int) error {
	return signalGroup(pid, syscall.SIGKILL)
}
