//go:build !unix

package server

import (
	"errors"
	"os"
	"os/exec"
)

func setProcessGroup(cmd *exec.Cmd) {}

func freezeProcess(pid int) error {
	return errors.New("process freezing is not supported on this platform")
}

func thawProcess(pid int) error {
	return errors.New("process freezing is not supported on this platform")
}

func terminateProcess(pid int) error {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return proc.Kill()
}

func killProcess(pid int) error {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return proc.Kill()
}
