// Package system проверяет ресурсы хоста перед запуском и держит пул
// буферов временных шагов.
package system

import (
	"fmt"

	"github.com/shirou/gopsutil/v3/mem"
)

// FrameBytes оценивает память одной генерирующей сцены: фон, кадр и
// аккумулятор аннотации.
func FrameBytes(width, height, bands, annotationBands int) uint64 {
	px := uint64(width) * uint64(height)
	return px * 8 * uint64(2*bands+annotationBands)
}

// MemoryReport сравнивает оценку потребности с доступной памятью.
type MemoryReport struct {
	Required  uint64
	Available uint64
}

// Fits сообщает, хватает ли памяти.
func (r MemoryReport) Fits() bool {
	return r.Required <= r.Available
}

func (r MemoryReport) String() string {
	return fmt.Sprintf("%.1f MiB needed, %.1f MiB available",
		float64(r.Required)/(1<<20), float64(r.Available)/(1<<20))
}

// CheckMemory оценивает потребность workers параллельных сцен и читает
// доступную память хоста.
func CheckMemory(width, height, bands, annotationBands, workers int) (MemoryReport, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return MemoryReport{}, fmt.Errorf("system: read memory stats: %w", err)
	}
	return MemoryReport{
		Required:  FrameBytes(width, height, bands, annotationBands) * uint64(max(workers, 1)),
		Available: vm.Available,
	}, nil
}
