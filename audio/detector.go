package audio

import (
	"os"
	"os/exec"
	"runtime"
	"strconv"
)

// pipeTool describes a player that accepts raw s16le PCM on stdin
type pipeTool struct {
	typ  BackendType
	name string
	bin  string
	args func(rate, channels string) []string
}

// pipeTools in priority order: pacat > pw-cat > aplay > play (sox) > ffplay
var pipeTools = []pipeTool{
	{BackendPulse, "pacat", "pacat", func(rate, ch string) []string {
		return []string{"--raw", "--format=s16le", "--rate=" + rate, "--channels=" + ch, "--latency-msec=30", "--playback"}
	}},
	{BackendPipeWire, "pw-cat", "pw-cat", func(rate, ch string) []string {
		return []string{"--playback", "--format=s16", "--rate=" + rate, "--channels=" + ch, "--latency=30ms", "-"}
	}},
	{BackendALSA, "aplay", "aplay", func(rate, ch string) []string {
		return []string{"-t", "raw", "-f", "S16_LE", "-r", rate, "-c", ch, "-q"}
	}},
	{BackendSoX, "sox", "play", func(rate, ch string) []string {
		return []string{"-t", "raw", "-e", "signed", "-b", "16", "-c", ch, "-r", rate, "-", "-d", "-q"}
	}},
	{BackendFFplay, "ffplay", "ffplay", func(rate, ch string) []string {
		return []string{"-nodisp", "-autoexit", "-f", "s16le", "-ac", ch, "-ar", rate,
			"-probesize", "32", "-analyzeduration", "0", "-i", "pipe:0", "-loglevel", "quiet"}
	}},
}

// DetectBackend searches for an available CLI audio backend
// FreeBSD falls back to writing /dev/dsp directly
func DetectBackend(sampleRate, channels int) (*BackendConfig, error) {
	rate := strconv.Itoa(sampleRate)
	ch := strconv.Itoa(channels)

	for _, tool := range pipeTools {
		if path, err := exec.LookPath(tool.bin); err == nil {
			return &BackendConfig{
				Type: tool.typ,
				Name: tool.name,
				Path: path,
				Args: tool.args(rate, ch),
			}, nil
		}
	}

	// OSS: direct device write, no exec needed
	if runtime.GOOS == "freebsd" {
		if _, err := os.Stat("/dev/dsp"); err == nil {
			return &BackendConfig{
				Type: BackendOSS,
				Name: "oss",
				Path: "/dev/dsp",
			}, nil
		}
	}

	return nil, ErrNoAudioBackend
}
