package frame

import (
	"fmt"

	"github.com/spaghettifunk/vkclear/engine/core"
)

// Slot holds the per-frame synchronization and recording resources. A slot
// is not tied to a presentable image: each tick records into whichever image
// the chain hands out.
type Slot struct {
	Index int

	Commands         CommandContext
	Fence            Fence
	AcquireSemaphore Semaphore
	PresentSemaphore Semaphore

	// Number of submissions issued through this slot.
	Submissions uint64
}

func newSlot(device Device, index int) (*Slot, error) {
	s := &Slot{Index: index}

	var err error
	if s.Commands, err = device.CreateCommandContext(); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", core.ObjectName("command context", index), err)
	}
	// Created signaled so that the first wait through the slot returns at once.
	if s.Fence, err = device.CreateFence(true); err != nil {
		s.destroy()
		return nil, fmt.Errorf("failed to create %s: %w", core.ObjectName("fence", index), err)
	}
	if s.AcquireSemaphore, err = device.CreateSemaphore(); err != nil {
		s.destroy()
		return nil, fmt.Errorf("failed to create %s: %w", core.ObjectName("acquire semaphore", index), err)
	}
	if s.PresentSemaphore, err = device.CreateSemaphore(); err != nil {
		s.destroy()
		return nil, fmt.Errorf("failed to create %s: %w", core.ObjectName("present semaphore", index), err)
	}
	return s, nil
}

// destroy releases the slot's own objects, semaphores first, then the fence
// and the command context. The device must be idle.
func (s *Slot) destroy() {
	if s.AcquireSemaphore != nil {
		s.AcquireSemaphore.Destroy()
		s.AcquireSemaphore = nil
	}
	if s.PresentSemaphore != nil {
		s.PresentSemaphore.Destroy()
		s.PresentSemaphore = nil
	}
	if s.Fence != nil {
		s.Fence.Destroy()
		s.Fence = nil
	}
	if s.Commands != nil {
		s.Commands.Destroy()
		s.Commands = nil
	}
}
