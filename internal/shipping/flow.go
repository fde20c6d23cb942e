package shipping

import "fmt"

// FlowSummary describes the shape of the tree. It depends only on the vessel
// name and the lighter and truck counts.
func FlowSummary(c *ShipmentCycle) string {
	return fmt.Sprintf("Unloaded from 1 Mother Vessel (%s) to %d Lighter(s), then to %d Truck(s)",
		c.MotherVesselName, len(c.Lighters), c.TruckCount())
}

// RefreshFlowSummary recomputes the stored summary from scratch.
func (c *ShipmentCycle) RefreshFlowSummary() {
	c.FlowSummary = FlowSummary(c)
}

// FlowSummaryStale reports whether the stored summary no longer matches the tree.
func (c *ShipmentCycle) FlowSummaryStale() bool {
	return c.FlowSummary != FlowSummary(c)
}
