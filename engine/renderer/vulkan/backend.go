package vulkan

import (
	"fmt"
	"runtime"
	"unsafe"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vkclear/engine/core"
	"github.com/spaghettifunk/vkclear/engine/renderer/frame"
)

const validationLayerName = "VK_LAYER_KHRONOS_validation"

// instanceVersions are tried newest first when creating the instance.
var instanceVersions = []uint32{
	vk.MakeVersion(1, 3, 0),
	vk.MakeVersion(1, 2, 0),
	vk.MakeVersion(1, 1, 0),
	vk.MakeVersion(1, 0, 0),
}

type VulkanRenderer struct {
	window  Window
	appName string
	config  core.RendererConfig
	context *VulkanContext
}

func New(window Window, appName string, config core.RendererConfig) *VulkanRenderer {
	return &VulkanRenderer{
		window:  window,
		appName: appName,
		config:  config,
		context: &VulkanContext{
			Allocator: nil,
		},
	}
}

// Initialize creates every device-level object and registers each one with t
// as soon as it exists, so that a failure half way leaves t able to release
// what was built.
func (vr *VulkanRenderer) Initialize(t *frame.Teardown) (frame.Device, frame.Chain, error) {
	procAddr := glfw.GetVulkanGetInstanceProcAddress()
	if procAddr == nil {
		err := fmt.Errorf("%w: GetInstanceProcAddress is nil", frame.ErrSetupFailure)
		core.LogError(err.Error())
		return nil, nil, err
	}
	vk.SetGetInstanceProcAddr(procAddr)

	if err := vk.Init(); err != nil {
		err = fmt.Errorf("%w: failed to initialize vk: %w", frame.ErrSetupFailure, err)
		core.LogError(err.Error())
		return nil, nil, err
	}

	if err := vr.createInstance(); err != nil {
		return nil, nil, err
	}
	if err := t.Add(frame.ResourceInstance, vr.destroyInstance); err != nil {
		vr.destroyInstance()
		return nil, nil, err
	}

	// Surface
	core.LogDebug("Creating Vulkan surface...")
	surface, err := vr.window.CreateWindowSurface(vr.context.Instance)
	if err != nil {
		err = fmt.Errorf("%w: failed to create platform surface: %w", frame.ErrSetupFailure, err)
		core.LogError(err.Error())
		return nil, nil, err
	}
	vr.context.Surface = vk.SurfaceFromPointer(surface)
	if err := t.Add(frame.ResourceSurface, vr.destroySurface, frame.ResourceInstance); err != nil {
		return nil, nil, err
	}
	core.LogDebug("Vulkan surface created.")

	// Device creation
	device, err := DeviceCreate(vr.context)
	if err != nil {
		return nil, nil, err
	}
	vr.context.Device = device
	if err := t.Add(frame.ResourceDevice, device.Destroy, frame.ResourceInstance); err != nil {
		return nil, nil, err
	}

	// Swapchain
	width, height := vr.window.FramebufferSize()
	swapchain, err := SwapchainCreate(vr.context, device, width, height, vr.config.MinImageCount)
	if err != nil {
		return nil, nil, err
	}
	vr.context.Swapchain = swapchain
	if err := t.Add(frame.ResourceChain, swapchain.Destroy, frame.ResourceDevice, frame.ResourceSurface); err != nil {
		return nil, nil, err
	}

	renderpass, err := RenderpassCreate(device, swapchain.ImageFormat.Format)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", frame.ErrSetupFailure, err)
	}
	vr.context.MainRenderpass = renderpass
	if err := t.Add(frame.ResourceRenderPass, renderpass.Destroy, frame.ResourceDevice); err != nil {
		return nil, nil, err
	}

	// Swapchain framebuffers.
	if err := swapchain.CreateFramebuffers(renderpass); err != nil {
		return nil, nil, err
	}
	if err := t.Add(frame.ResourceRenderTargets, swapchain.DestroyFramebuffers, frame.ResourceChain, frame.ResourceRenderPass); err != nil {
		return nil, nil, err
	}

	core.LogInfo("Vulkan renderer initialized successfully.")
	return device, swapchain, nil
}

func (vr *VulkanRenderer) createInstance() error {
	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApplicationVersion: vk.MakeVersion(1, 0, 0),
		PApplicationName:   VulkanSafeString(vr.appName),
		PEngineName:        VulkanSafeString("vkclear"),
	}

	createInfo := vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: appInfo,
	}

	// Obtain a list of required extensions
	requiredExtensions := vr.window.GetRequiredExtensionNames()
	if runtime.GOOS == "darwin" {
		requiredExtensions = append(requiredExtensions,
			"VK_KHR_portability_enumeration",
			"VK_KHR_get_physical_device_properties2",
		)
		// VK_INSTANCE_CREATE_ENUMERATE_PORTABILITY_BIT_KHR
		createInfo.Flags |= 1
	}

	validation := vr.config.Validation && validationLayerAvailable()
	if vr.config.Validation && !validation {
		core.LogWarn("Required validation layer is missing: %s. Continuing without validation.", validationLayerName)
	}

	layers := []string{}
	if validation {
		requiredExtensions = append(requiredExtensions, vk.ExtDebugReportExtensionName)
		layers = append(layers, validationLayerName)
		core.LogInfo("Validation layers enabled.")
	}
	core.LogDebug("Required extensions: %v", requiredExtensions)

	createInfo.EnabledExtensionCount = uint32(len(requiredExtensions))
	createInfo.PpEnabledExtensionNames = VulkanSafeStrings(requiredExtensions)
	createInfo.EnabledLayerCount = uint32(len(layers))
	createInfo.PpEnabledLayerNames = VulkanSafeStrings(layers)

	// A 1.0 loader rejects any other apiVersion with ERROR_INCOMPATIBLE_DRIVER,
	// later loaders accept the newest one we know.
	res := vk.ErrorIncompatibleDriver
	for _, version := range instanceVersions {
		appInfo.ApiVersion = version
		res = vk.CreateInstance(&createInfo, vr.context.Allocator, &vr.context.Instance)
		if res != vk.ErrorIncompatibleDriver {
			break
		}
		core.LogDebug("Instance API version %s rejected by the loader.", vk.Version(version))
	}
	if res != vk.Success {
		err := fmt.Errorf("%w: failed in creating the Vulkan Instance with error `%s`", frame.ErrSetupFailure, VulkanResultString(res, true))
		core.LogError(err.Error())
		return err
	}
	vr.context.APIVersion = vk.Version(appInfo.ApiVersion)
	if err := vk.InitInstance(vr.context.Instance); err != nil {
		vk.DestroyInstance(vr.context.Instance, vr.context.Allocator)
		err = fmt.Errorf("%w: %w", frame.ErrSetupFailure, err)
		core.LogError(err.Error())
		return err
	}
	core.LogInfo("Vulkan Instance created with API version %s.", vr.context.APIVersion)

	if validation {
		core.LogDebug("Creating Vulkan debugger...")
		debugCreateInfo := vk.DebugReportCallbackCreateInfo{
			SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
			Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit),
			PfnCallback: dbgCallbackFunc,
		}
		var dbg vk.DebugReportCallback
		if err := vk.Error(vk.CreateDebugReportCallback(vr.context.Instance, &debugCreateInfo, vr.context.Allocator, &dbg)); err != nil {
			// Not fatal: rendering works without the callback.
			core.LogWarn("vk.CreateDebugReportCallback failed with %s", err)
		} else {
			vr.context.debugMessenger = dbg
			core.LogDebug("Vulkan debugger created.")
		}
	}
	return nil
}

func validationLayerAvailable() bool {
	var count uint32
	if res := vk.EnumerateInstanceLayerProperties(&count, nil); res != vk.Success {
		return false
	}
	layers := make([]vk.LayerProperties, count)
	if res := vk.EnumerateInstanceLayerProperties(&count, layers); res != vk.Success {
		return false
	}
	for i := range layers {
		layers[i].Deref()
		if vk.ToString(layers[i].LayerName[:]) == validationLayerName {
			return true
		}
	}
	return false
}

func (vr *VulkanRenderer) destroySurface() {
	if vr.context.Surface != vk.NullSurface {
		vk.DestroySurface(vr.context.Instance, vr.context.Surface, vr.context.Allocator)
		vr.context.Surface = vk.NullSurface
	}
}

func (vr *VulkanRenderer) destroyInstance() {
	if vr.context.debugMessenger != vk.NullDebugReportCallback {
		core.LogDebug("Destroying Vulkan debugger...")
		vk.DestroyDebugReportCallback(vr.context.Instance, vr.context.debugMessenger, vr.context.Allocator)
		vr.context.debugMessenger = vk.NullDebugReportCallback
	}
	if vr.context.Instance != nil {
		vk.DestroyInstance(vr.context.Instance, vr.context.Allocator)
		vr.context.Instance = nil
	}
}

func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64, location uint64, messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		core.LogError("ERROR: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		core.LogWarn("WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		core.LogWarn("PERFORMANCE WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	default:
		core.LogDebug("[%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	}
	return vk.Bool32(vk.False)
}
