// Package client is the Go SDK for a mythic-registry node.
//
// A Client holds a gRPC connection, an instruction builder configured with
// the node's program id and addressing scheme, and typed fetchers for the
// three account kinds:
//
//	c, err := client.Dial("localhost:50051")
//	defer c.Close()
//
//	receipt, err := c.InitializeCounter(ctx, payer)
//	key, receipt, err := c.CreateMetadataKey(ctx, registry.KeyParams{...}, owner)
//	mk, err := c.FetchMetadataKey(ctx, key)
//
// Send signs an instruction with the given keypairs and submits it. A
// submission rejected as a conflict is signed again with a fresh nonce and
// resubmitted, up to the configured number of attempts. Under the counter
// scheme CreateMetadataKey re-reads the counter before each attempt, since a
// stale id never succeeds on resubmission alone.
package client
