//go:build !unix

package transcoder

import "os/exec"

func killProcessGroupOnCancel(cmd *exec.Cmd) {}
