package frame

import (
	"fmt"

	"github.com/spaghettifunk/vkclear/engine/core"
)

// Resource categories registered with a Teardown.
const (
	ResourceInstance      = "instance"
	ResourceSurface       = "surface"
	ResourceDevice        = "device"
	ResourceRenderPass    = "render-pass"
	ResourceChain         = "chain"
	ResourceRenderTargets = "render-targets"
	ResourceFrameSlots    = "frame-slots"
)

type teardownNode struct {
	name      string
	release   func()
	dependsOn []string
	order     int
	released  bool
}

// Teardown releases resource categories in an order derived from their
// declared dependencies: a category is released only after every category
// depending on it. Categories without an ordering constraint between them are
// released newest first.
//
// Release always waits for the device to go idle before destroying anything.
type Teardown struct {
	nodes    map[string]*teardownNode
	added    int
	released bool
}

func NewTeardown() *Teardown {
	return &Teardown{nodes: make(map[string]*teardownNode)}
}

// Add registers a category. Every dependency must already be registered, which
// also rules out cycles.
func (t *Teardown) Add(name string, release func(), dependsOn ...string) error {
	if t.released {
		return fmt.Errorf("teardown: cannot add `%s` after release", name)
	}
	if _, exists := t.nodes[name]; exists {
		return fmt.Errorf("teardown: `%s` already registered", name)
	}
	for _, dep := range dependsOn {
		if _, ok := t.nodes[dep]; !ok {
			return fmt.Errorf("teardown: `%s` depends on unknown `%s`", name, dep)
		}
	}
	t.nodes[name] = &teardownNode{
		name:      name,
		release:   release,
		dependsOn: dependsOn,
		order:     t.added,
	}
	t.added++
	return nil
}

func (t *Teardown) Has(name string) bool {
	_, ok := t.nodes[name]
	return ok
}

// Order returns the release order without releasing anything.
func (t *Teardown) Order() []string {
	dependents := make(map[string]int, len(t.nodes))
	for _, n := range t.nodes {
		for _, dep := range n.dependsOn {
			dependents[dep]++
		}
	}

	order := make([]string, 0, len(t.nodes))
	done := make(map[string]bool, len(t.nodes))
	for len(order) < len(t.nodes) {
		// pick the newest node nothing unreleased depends on
		var next *teardownNode
		for _, n := range t.nodes {
			if done[n.name] || dependents[n.name] > 0 {
				continue
			}
			if next == nil || n.order > next.order {
				next = n
			}
		}
		done[next.name] = true
		order = append(order, next.name)
		for _, dep := range next.dependsOn {
			dependents[dep]--
		}
	}
	return order
}

// Release waits for the device to go idle exactly once and then releases
// every category. A lost device has nothing executing anymore, so release
// still runs and ErrDeviceLost is returned. Any other failed wait leaves the
// device objects alive and returns ErrWaitIdleFailed.
func (t *Teardown) Release(waitIdle func() Result) error {
	if t.released {
		return nil
	}
	t.released = true

	var err error
	if waitIdle != nil {
		core.LogDebug("Waiting for device idle before teardown...")
		switch res := waitIdle(); res {
		case Success:
		case ErrorDeviceLost:
			err = fmt.Errorf("device wait idle failed with %s: %w", res, ErrDeviceLost)
			core.LogError(err.Error())
		default:
			err = fmt.Errorf("%w: device wait idle returned %s, skipping release of %d categories", ErrWaitIdleFailed, res, len(t.nodes))
			core.LogError(err.Error())
			return err
		}
	}

	for _, name := range t.Order() {
		n := t.nodes[name]
		core.LogDebug("Destroying %s...", name)
		if n.release != nil {
			n.release()
		}
		n.released = true
	}
	return err
}
