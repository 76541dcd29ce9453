// Package events fans committed registry transactions out to live subscribers.
//
// The gateway publishes one Event per committed transaction. A subscriber
// either watches one account, receiving only the transactions that wrote
// it, or passes the zero address to receive everything:
//
//	ch, id := broadcaster.Subscribe(ctx, metadataAddr)
//	for ev := range ch {
//		fmt.Println(ev.Slot, ev.Op)
//	}
//
// Delivery is best effort. A subscriber whose buffer is full misses events
// rather than blocking the commit path; it can catch up from the
// transaction log by slot.
package events
