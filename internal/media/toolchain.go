package media

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

// ResolveFFmpeg locates the ffmpeg binary: first on PATH, then in each of
// the given candidate directories in order. It returns the directory that
// contains the binary and whether one was found. Pure lookup; "not found"
// only changes the extraction strategy, it never aborts the pipeline.
func ResolveFFmpeg(searchDirs []string) (string, bool) {
	if p, err := exec.LookPath(ffmpegBinary()); err == nil {
		return filepath.Dir(p), true
	}
	for _, dir := range searchDirs {
		candidate := filepath.Join(dir, ffmpegBinary())
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return dir, true
		}
	}
	return "", false
}

func ffmpegBinary() string {
	if runtime.GOOS == "windows" {
		return "ffmpeg.exe"
	}
	return "ffmpeg"
}

func ffprobeBinary() string {
	if runtime.GOOS == "windows" {
		return "ffprobe.exe"
	}
	return "ffprobe"
}
