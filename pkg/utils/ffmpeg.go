package utils

import "os/exec"

// CheckFFmpeg reports whether the ffmpeg binary is available.
func CheckFFmpeg() bool {
	cmd := exec.Command("ffmpeg", "-version")
	err := cmd.Run()
	return err == nil
}

// CheckFFprobe reports whether the ffprobe binary is available.
func CheckFFprobe() bool {
	cmd := exec.Command("ffprobe", "-version")
	err := cmd.Run()
	return err == nil
}
