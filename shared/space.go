package shared

import (
	"github.com/ricochet2200/go-disk-usage/du"
	"github.com/shirou/gopsutil/v3/mem"
)

func AvailableSpace(path string) uint64 {
	usage := du.NewDiskUsage(path)
	return usage.Available()
}

func AvailableMemory() (uint64, error) {
	stat, err := mem.VirtualMemory()
	if err != nil {
		return 0, err
	}
	return stat.Available, nil
}
