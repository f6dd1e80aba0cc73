package qkernel

import (
	"runtime"
	"strings"

	"golang.org/x/sys/cpu"
)

// HostFeatures describes the CPU the software kernel runs on.
type HostFeatures struct {
	Architecture string
	HasAVX2      bool
	HasAVX512    bool
	HasFMA       bool
	HasSSE2      bool
	HasNEON      bool
}

// DetectHostFeatures reports the features of the current process's CPU.
func DetectHostFeatures() HostFeatures {
	return HostFeatures{
		Architecture: runtime.GOARCH,
		HasAVX2:      cpu.X86.HasAVX2,
		HasAVX512:    cpu.X86.HasAVX512F,
		HasFMA:       cpu.X86.HasFMA,
		HasSSE2:      cpu.X86.HasSSE2,
		HasNEON:      cpu.ARM64.HasASIMD,
	}
}

func (f HostFeatures) String() string {
	flags := []string{f.Architecture}

	for _, feature := range []struct {
		name string
		ok   bool
	}{
		{"sse2", f.HasSSE2},
		{"avx2", f.HasAVX2},
		{"avx512", f.HasAVX512},
		{"fma", f.HasFMA},
		{"neon", f.HasNEON},
	} {
		if feature.ok {
			flags = append(flags, feature.name)
		}
	}

	return strings.Join(flags, " ")
}
