// Package gateway runs the mythic-registry node.
//
// # Overview
//
// The gateway owns the ledger, the registry program and the signature
// verifier, and exposes them over gRPC and HTTP. Both surfaces go through
// Service, so a submitted transaction is verified and executed the same way
// regardless of how it arrived.
//
// # HTTP API
//
//   - GET /health - Liveness check
//   - GET /ready - Ledger reachable
//   - GET /api/accounts/{address} - One account, raw and decoded
//   - GET /api/transactions?limit=N - Most recent committed transactions
//   - POST /api/transactions - Submit a signed transaction
//   - GET /api/events?account=ADDR - Server-sent stream of committed transactions
//
// Errors are JSON objects of the form:
//
//	{"error": "collection already exists: ...", "kind": "already_exists", "code": 6005}
//
// # gRPC Service
//
// The gateway implements mythic.metadata.v1.Registry from package rpc:
//
//	SubmitTransaction, GetAccount, GetLatestSlot
//
// Every call gets a request id (x-request-id) and one log line.
//
// # Lifecycle
//
//	gw, err := gateway.New(cfg, logger)
//	go gw.Run(ctx)
//	cancel() // Run shuts both servers down and closes the ledger
package gateway
