package buftree

// Observer receives structural events from a Tree: node allocation/free and
// the three occupancy-repair shapes (split, merge, rotation). It exists so
// the metrics layer (pkg/metrics) can be wired to the engine without the
// engine importing a metrics/Prometheus dependency itself.
type Observer interface {
	NodeAllocated()
	NodeFreed()
	Split()
	Merge()
	Rotation()
}

type noopObserver struct{}

func (noopObserver) NodeAllocated() {}
func (noopObserver) NodeFreed()     {}
func (noopObserver) Split()         {}
func (noopObserver) Merge()         {}
func (noopObserver) Rotation()      {}

// SetObserver attaches obs to the tree; passing nil detaches any observer.
func (t *Tree) SetObserver(obs Observer) {
	if obs == nil {
		obs = noopObserver{}
	}
	t.obs = obs
}
