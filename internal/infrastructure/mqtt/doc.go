// Package mqtt provides MQTT client connectivity for the Flostat core.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//   - Flostat topic builders and the standard event envelope
//
// # Architecture
//
// MQTT is the transport between the core, the browser dashboards and the
// physical valve/pump controllers. Device status changes fan out on
// per-device command topics; schedule provisioning goes to the /hardware
// suffix of the same topics; hardware acks come back on the org's
// schedule/ack topic.
//
//	Dashboard ↔ MQTT Broker ↔ Flostat Core ↔ Hardware controllers
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	topic := mqtt.Topics{}.DeviceCommand("org-1", "blk-2", "valve", "v-17")
//	err = client.PublishEnvelope(topic, mqtt.NewActorEnvelope(mqtt.EventDeviceUpdate, status, "ops@flostat.in"))
package mqtt
