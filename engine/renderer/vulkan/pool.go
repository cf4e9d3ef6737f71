package vulkan

import "sync"

// VulkanLockPool serializes host access to queues. Vulkan requires queue
// submission, presentation and device idle waits to be externally
// synchronized per queue.
type VulkanLockPool struct {
	mu sync.Mutex // Protects access to the map

	queueMutexes map[uint32]*sync.Mutex // Queue family index as key
}

func NewVulkanLockPool() *VulkanLockPool {
	return &VulkanLockPool{
		queueMutexes: make(map[uint32]*sync.Mutex),
	}
}

func (vs *VulkanLockPool) SetQueueFamily(index uint32) {
	vs.mu.Lock()
	defer vs.mu.Unlock()

	if _, exists := vs.queueMutexes[index]; !exists {
		vs.queueMutexes[index] = &sync.Mutex{}
	}
}

// SafeQueueCall runs fn while holding the lock of the given queue family.
func (vs *VulkanLockPool) SafeQueueCall(queueFamilyIndex uint32, fn func()) {
	vs.mu.Lock()
	l, ok := vs.queueMutexes[queueFamilyIndex]
	if !ok {
		l = &sync.Mutex{}
		vs.queueMutexes[queueFamilyIndex] = l
	}
	vs.mu.Unlock()

	l.Lock()
	defer l.Unlock()

	fn()
}
