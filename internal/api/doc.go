// Package api provides the HTTP REST API for the Flostat core service.
//
// It exposes the device catalog, inbound device events, block operations,
// schedule lifecycle requests and the audit trail to dashboard clients.
// Hardware controllers never talk HTTP; they live on the MQTT side.
//
// The server follows the same lifecycle pattern as other infrastructure
// components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api
