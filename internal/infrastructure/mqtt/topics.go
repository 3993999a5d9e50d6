package mqtt

import "fmt"

// Topic prefixes per the Flostat MQTT hierarchy.
//
// Device command topics carry an org scope and the device's position in the
// hierarchy; the hardware suffix addresses the physical valve/pump
// controllers rather than the dashboard subscribers.
const (
	// TopicPrefix is the base for all Flostat topics.
	TopicPrefix = "flostat"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "flostat/system"

	// BlockNone is the block segment used for devices outside any block
	// (sumps are always published under this sentinel).
	BlockNone = "none"
)

// Topics provides builders for Flostat MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	cmdTopic := topics.DeviceCommand("org-1", "blk-2", "valve", "v-17")
//	// Returns: "flostat/org-1/command/blk-2/valve/v-17"
type Topics struct{}

// DeviceCommand returns the topic for device status updates.
//
// Example: flostat/org-1/command/blk-2/valve/v-17
func (Topics) DeviceCommand(org, block, deviceType, deviceID string) string {
	if block == "" {
		block = BlockNone
	}
	return fmt.Sprintf("%s/%s/command/%s/%s/%s", TopicPrefix, org, block, deviceType, deviceID)
}

// HardwareCommand returns the topic for commands addressed to the physical
// valve/pump controllers (schedule provisioning).
//
// Example: flostat/org-1/command/blk-2/pump/p-03/hardware
func (Topics) HardwareCommand(org, block, deviceType, deviceID string) string {
	return Topics{}.DeviceCommand(org, block, deviceType, deviceID) + "/hardware"
}

// BlockBroadcast returns the topic for block-level broadcasts
// (mode changes, threshold updates).
//
// Example: flostat/org-1/blk-2
func (Topics) BlockBroadcast(org, block string) string {
	return fmt.Sprintf("%s/%s/%s", TopicPrefix, org, block)
}

// ScheduleAck returns the topic hardware controllers publish schedule
// acknowledgements to.
//
// Example: flostat/org-1/schedule/ack
func (Topics) ScheduleAck(org string) string {
	return fmt.Sprintf("%s/%s/schedule/ack", TopicPrefix, org)
}

// AllScheduleAcks returns a pattern matching schedule acknowledgements
// from every org.
//
// Pattern: flostat/+/schedule/ack
func (Topics) AllScheduleAcks() string {
	return fmt.Sprintf("%s/+/schedule/ack", TopicPrefix)
}

// SystemStatus returns the system status topic used for LWT and
// online/offline announcements.
//
// Example: flostat/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}
