package vulkan

import (
	vk "github.com/goki/vulkan"
	"golang.org/x/exp/constraints"

	"github.com/spaghettifunk/vkclear/engine/renderer/frame"
)

type resultInfo struct {
	name        string
	description string
	result      frame.Result
}

// From: https://www.khronos.org/registry/vulkan/specs/1.3-extensions/man/html/VkResult.html
var resultTable = map[vk.Result]resultInfo{
	// Success codes
	vk.Success:    {"VK_SUCCESS", "Command successfully completed", frame.Success},
	vk.NotReady:   {"VK_NOT_READY", "A fence or query has not yet completed", frame.NotReady},
	vk.Timeout:    {"VK_TIMEOUT", "A wait operation has not completed in the specified time", frame.Timeout},
	vk.Incomplete: {"VK_INCOMPLETE", "A return array was too small for the result", frame.ErrorUnknown},
	vk.Suboptimal: {"VK_SUBOPTIMAL_KHR", "A swapchain no longer matches the surface properties exactly, but can still be used to present to the surface successfully.", frame.Suboptimal},

	// Error codes
	vk.ErrorOutOfHostMemory:      {"VK_ERROR_OUT_OF_HOST_MEMORY", "A host memory allocation has failed.", frame.ErrorOutOfHostMemory},
	vk.ErrorOutOfDeviceMemory:    {"VK_ERROR_OUT_OF_DEVICE_MEMORY", "A device memory allocation has failed.", frame.ErrorOutOfDeviceMemory},
	vk.ErrorInitializationFailed: {"VK_ERROR_INITIALIZATION_FAILED", "Initialization of an object could not be completed for implementation-specific reasons.", frame.ErrorInitializationFailed},
	vk.ErrorDeviceLost:           {"VK_ERROR_DEVICE_LOST", "The logical or physical device has been lost.", frame.ErrorDeviceLost},
	vk.ErrorLayerNotPresent:      {"VK_ERROR_LAYER_NOT_PRESENT", "A requested layer is not present or could not be loaded.", frame.ErrorInitializationFailed},
	vk.ErrorExtensionNotPresent:  {"VK_ERROR_EXTENSION_NOT_PRESENT", "A requested extension is not supported.", frame.ErrorInitializationFailed},
	vk.ErrorFeatureNotPresent:    {"VK_ERROR_FEATURE_NOT_PRESENT", "A requested feature is not supported.", frame.ErrorInitializationFailed},
	vk.ErrorIncompatibleDriver:   {"VK_ERROR_INCOMPATIBLE_DRIVER", "The requested version of Vulkan is not supported by the driver.", frame.ErrorInitializationFailed},
	vk.ErrorTooManyObjects:       {"VK_ERROR_TOO_MANY_OBJECTS", "Too many objects of the type have already been created.", frame.ErrorOutOfHostMemory},
	vk.ErrorFormatNotSupported:   {"VK_ERROR_FORMAT_NOT_SUPPORTED", "A requested format is not supported on this device.", frame.ErrorFormatNotSupported},
	vk.ErrorSurfaceLost:          {"VK_ERROR_SURFACE_LOST_KHR", "A surface is no longer available.", frame.ErrorSurfaceLost},
	vk.ErrorNativeWindowInUse:    {"VK_ERROR_NATIVE_WINDOW_IN_USE_KHR", "The requested window is already in use by Vulkan or another API.", frame.ErrorInitializationFailed},
	vk.ErrorOutOfDate:            {"VK_ERROR_OUT_OF_DATE_KHR", "A surface has changed in such a way that it is no longer compatible with the swapchain.", frame.ErrorOutOfDate},
	vk.ErrorIncompatibleDisplay:  {"VK_ERROR_INCOMPATIBLE_DISPLAY_KHR", "The display used by a swapchain does not use the same presentable image layout.", frame.ErrorInitializationFailed},
	vk.ErrorOutOfPoolMemory:      {"VK_ERROR_OUT_OF_POOL_MEMORY", "A pool memory allocation has failed.", frame.ErrorOutOfDeviceMemory},
	vk.ErrorUnknown:              {"VK_ERROR_UNKNOWN", "An unknown error has occurred.", frame.ErrorUnknown},
}

func VulkanResultString(result vk.Result, getExtended bool) string {
	info, ok := resultTable[result]
	if !ok {
		info = resultTable[vk.ErrorUnknown]
	}
	if !getExtended {
		return info.name
	}
	return info.name + " " + info.description
}

// toResult translates a Vulkan result into the renderer-neutral one.
func toResult(result vk.Result) frame.Result {
	if info, ok := resultTable[result]; ok {
		return info.result
	}
	return frame.ErrorUnknown
}

func Clamp[T constraints.Ordered](value, min, max T) T {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

var end = "\x00"
var endChar byte = '\x00'

func VulkanSafeString(s string) string {
	if len(s) == 0 {
		return end
	}
	if s[len(s)-1] != endChar {
		return s + end
	}
	return s
}

func VulkanSafeStrings(list []string) []string {
	out := make([]string, len(list))
	for i := range list {
		out[i] = VulkanSafeString(list[i])
	}
	return out
}

// negotiateVersion returns the version usable by both the instance and the
// device: the lower major.minor of the two, keeping that side's patch level.
func negotiateVersion(instance, device vk.Version) vk.Version {
	if instance.Major() != device.Major() {
		if instance.Major() < device.Major() {
			return instance
		}
		return device
	}
	if instance.Minor() <= device.Minor() {
		return instance
	}
	return device
}
