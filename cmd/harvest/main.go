// Harvest is a forwarding gateway for an Ollama-compatible chat backend.
//
// It accepts /api/chat and /api/generate requests, relays them to the
// backend unchanged, streams NDJSON replies back as they arrive and records
// each completed conversation turn in a history store.
//
// Usage:
//
//	# Start the gateway with config.yaml from the working directory
//	harvest run
//
//	# Start with a custom configuration file
//	harvest run --config /etc/harvest/config.yaml
//
//	# Show the newest stored turns
//	harvest history list --limit 20
//
//	# Check a configuration file
//	harvest validate --config config.yaml
package main

func main() {
	Execute()
}
