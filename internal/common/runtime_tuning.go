package common

import (
	"os"
	"runtime"
	"runtime/debug"

	"github.com/rs/zerolog/log"
)

// DefaultMemLimit bounds heap growth when GOMEMLIMIT is unset.
const DefaultMemLimit = 1 * 1024 * 1024 * 1024 // 1GB

// InitRuntime applies process defaults unless overridden by GOMAXPROCS or GOMEMLIMIT.
func InitRuntime() {
	if maxProcs := os.Getenv("GOMAXPROCS"); maxProcs == "" {
		procs := runtime.NumCPU()
		if procs > 4 {
			procs = 4
		}
		runtime.GOMAXPROCS(procs)
		log.Info().
			Int("GOMAXPROCS", procs).
			Int("total_cpu", runtime.NumCPU()).
			Msg("[runtime] Set GOMAXPROCS")
	}

	if memLimit := os.Getenv("GOMEMLIMIT"); memLimit == "" {
		debug.SetMemoryLimit(DefaultMemLimit)
		log.Info().
			Int64("GOMEMLIMIT_bytes", DefaultMemLimit).
			Msg("[runtime] Set memory limit")
	}

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	log.Info().
		Int("num_cpu", runtime.NumCPU()).
		Int("gomaxprocs", runtime.GOMAXPROCS(0)).
		Uint64("heap_alloc_mb", memStats.HeapAlloc/1024/1024).
		Str("go_version", runtime.Version()).
		Msg("[runtime] Current runtime settings")
}
