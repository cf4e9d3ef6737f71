package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vkclear/engine/core"
	"github.com/spaghettifunk/vkclear/engine/renderer/frame"
)

// VulkanSwapchain is the presentation chain. It owns the image views and the
// framebuffers wrapping them; the images belong to the swapchain itself.
type VulkanSwapchain struct {
	Handle      vk.Swapchain
	ImageFormat vk.SurfaceFormat
	Extent      vk.Extent2D
	NumImages   uint32
	Images      []vk.Image
	Views       []vk.ImageView

	// framebuffers used for on-screen rendering.
	Framebuffers []*VulkanFramebuffer

	device *VulkanDevice
}

type VulkanSwapchainSupportInfo struct {
	Capabilities vk.SurfaceCapabilities
	Formats      []vk.SurfaceFormat
	PresentModes []vk.PresentMode
}

var _ frame.Chain = (*VulkanSwapchain)(nil)

// SwapchainCreate builds the chain with the first supported surface format
// and present mode, asking for minImageCount images within the surface limits.
func SwapchainCreate(context *VulkanContext, device *VulkanDevice, width, height, minImageCount uint32) (*VulkanSwapchain, error) {
	support := device.SwapchainSupport
	if len(support.Formats) == 0 {
		err := fmt.Errorf("%w: surface reports no formats", frame.ErrFormatUnsupported)
		core.LogError(err.Error())
		return nil, err
	}

	swapchain := &VulkanSwapchain{
		ImageFormat: support.Formats[0],
		device:      device,
	}
	presentMode := vk.PresentModeFifo
	if len(support.PresentModes) > 0 {
		presentMode = support.PresentModes[0]
	}

	caps := support.Capabilities
	swapchain.Extent = vk.Extent2D{Width: width, Height: height}
	if caps.CurrentExtent.Width != vk.MaxUint32 {
		swapchain.Extent = caps.CurrentExtent
	} else {
		// Clamp to the value allowed by the GPU.
		swapchain.Extent.Width = Clamp(width, caps.MinImageExtent.Width, caps.MaxImageExtent.Width)
		swapchain.Extent.Height = Clamp(height, caps.MinImageExtent.Height, caps.MaxImageExtent.Height)
	}

	imageCount := minImageCount
	if imageCount < caps.MinImageCount {
		imageCount = caps.MinImageCount
	}
	if caps.MaxImageCount > 0 && imageCount > caps.MaxImageCount {
		imageCount = caps.MaxImageCount
	}

	swapchainCreateInfo := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          context.Surface,
		MinImageCount:    imageCount,
		ImageFormat:      swapchain.ImageFormat.Format,
		ImageColorSpace:  swapchain.ImageFormat.ColorSpace,
		ImageExtent:      swapchain.Extent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		// Graphics and present share one queue family.
		ImageSharingMode: vk.SharingModeExclusive,
		PreTransform:     vk.SurfaceTransformIdentityBit,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      presentMode,
		Clipped:          vk.False,
		OldSwapchain:     vk.NullSwapchain,
	}

	var swapchainHandle vk.Swapchain
	if res := vk.CreateSwapchain(device.LogicalDevice, &swapchainCreateInfo, context.Allocator, &swapchainHandle); res != vk.Success {
		err := fmt.Errorf("%w: failed to create swapchain: %s", frame.ResultError(toResult(res), frame.ErrSetupFailure), VulkanResultString(res, true))
		core.LogError(err.Error())
		return nil, err
	}
	swapchain.Handle = swapchainHandle

	// Images
	if res := vk.GetSwapchainImages(device.LogicalDevice, swapchain.Handle, &swapchain.NumImages, nil); res != vk.Success {
		swapchain.Destroy()
		err := fmt.Errorf("%w: failed to get swapchain images: %s", frame.ErrSetupFailure, VulkanResultString(res, false))
		core.LogError(err.Error())
		return nil, err
	}
	swapchain.Images = make([]vk.Image, swapchain.NumImages)
	if res := vk.GetSwapchainImages(device.LogicalDevice, swapchain.Handle, &swapchain.NumImages, swapchain.Images); res != vk.Success {
		swapchain.Destroy()
		err := fmt.Errorf("%w: failed to get swapchain images: %s", frame.ErrSetupFailure, VulkanResultString(res, false))
		core.LogError(err.Error())
		return nil, err
	}

	// Views
	swapchain.Views = make([]vk.ImageView, 0, swapchain.NumImages)
	for i := 0; i < int(swapchain.NumImages); i++ {
		viewInfo := vk.ImageViewCreateInfo{
			SType:    vk.StructureTypeImageViewCreateInfo,
			Image:    swapchain.Images[i],
			ViewType: vk.ImageViewType2d,
			Format:   swapchain.ImageFormat.Format,
			Components: vk.ComponentMapping{
				R: vk.ComponentSwizzleIdentity,
				G: vk.ComponentSwizzleIdentity,
				B: vk.ComponentSwizzleIdentity,
				A: vk.ComponentSwizzleIdentity,
			},
			SubresourceRange: vk.ImageSubresourceRange{
				AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
				BaseMipLevel:   0,
				LevelCount:     1,
				BaseArrayLayer: 0,
				LayerCount:     1,
			},
		}

		var view vk.ImageView
		if res := vk.CreateImageView(device.LogicalDevice, &viewInfo, context.Allocator, &view); res != vk.Success {
			swapchain.Destroy()
			err := fmt.Errorf("%w: failed to create %s: %s", frame.ErrSetupFailure, core.ObjectName("image view", i), VulkanResultString(res, false))
			core.LogError(err.Error())
			return nil, err
		}
		swapchain.Views = append(swapchain.Views, view)
	}

	core.LogInfo("Swapchain created with %d images of %dx%d.", swapchain.NumImages, swapchain.Extent.Width, swapchain.Extent.Height)
	return swapchain, nil
}

// CreateFramebuffers wraps every image view in a framebuffer of renderpass.
func (vs *VulkanSwapchain) CreateFramebuffers(renderpass *VulkanRenderpass) error {
	vs.Framebuffers = make([]*VulkanFramebuffer, 0, len(vs.Views))
	for i, view := range vs.Views {
		fb, err := FramebufferCreate(vs.device, renderpass, vs.Extent.Width, vs.Extent.Height, []vk.ImageView{view})
		if err != nil {
			vs.DestroyFramebuffers()
			return fmt.Errorf("%w: failed to create %s: %w", frame.ErrSetupFailure, core.ObjectName("framebuffer", i), err)
		}
		vs.Framebuffers = append(vs.Framebuffers, fb)
	}
	return nil
}

func (vs *VulkanSwapchain) DestroyFramebuffers() {
	for _, fb := range vs.Framebuffers {
		fb.Destroy()
	}
	vs.Framebuffers = nil
}

// Destroy releases the views and the swapchain. Only the views are
// destroyed, not the images, since those are owned by the swapchain.
func (vs *VulkanSwapchain) Destroy() {
	for _, view := range vs.Views {
		vk.DestroyImageView(vs.device.LogicalDevice, view, vs.device.allocator)
	}
	vs.Views = nil
	vs.Images = nil
	if vs.Handle != vk.NullSwapchain {
		vk.DestroySwapchain(vs.device.LogicalDevice, vs.Handle, vs.device.allocator)
		vs.Handle = vk.NullSwapchain
	}
}

func (vs *VulkanSwapchain) ImageCount() int {
	return int(vs.NumImages)
}

func (vs *VulkanSwapchain) RenderTarget(image uint32) frame.RenderTarget {
	return vs.Framebuffers[image]
}

func (vs *VulkanSwapchain) AcquireNextImage(signal frame.Semaphore, timeout uint64) (uint32, frame.Result) {
	var imageIndex uint32
	result := vk.AcquireNextImage(vs.device.LogicalDevice, vs.Handle, timeout, signal.(*VulkanSemaphore).Handle, vk.NullFence, &imageIndex)
	switch result {
	case vk.Success, vk.Suboptimal:
	default:
		core.LogError("failed to acquire swapchain image: %s", VulkanResultString(result, true))
	}
	return imageIndex, toResult(result)
}

func (vs *VulkanSwapchain) Present(wait frame.Semaphore, image uint32) (frame.Result, frame.Result) {
	// Return the image to the swapchain for presentation.
	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{wait.(*VulkanSemaphore).Handle},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{vs.Handle},
		PImageIndices:      []uint32{image},
		PResults:           []vk.Result{vk.Success},
	}

	var result vk.Result
	vs.device.locks.SafeQueueCall(vs.device.QueueFamilyIndex, func() {
		result = vk.QueuePresent(vs.device.Queue, &presentInfo)
	})
	presentInfo.Deref()
	chainResult := result
	if len(presentInfo.PResults) > 0 {
		chainResult = presentInfo.PResults[0]
	}

	if result != vk.Success || chainResult != vk.Success {
		core.LogError("failed to present swapchain image %d: queue=%s swapchain=%s",
			image, VulkanResultString(result, false), VulkanResultString(chainResult, false))
	}
	return toResult(result), toResult(chainResult)
}
