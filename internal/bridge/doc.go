// Package bridge lets a context that cannot read session memory (an HTTP
// caller, another process) obtain a live snapshot of the claim.
//
// Page contexts register with a Hub as peers: in-process through LocalPeer,
// or remotely by connecting a WebSocket to /bridge/ws (see Dial). A request
// goes to the most recently connected peer and waits a bounded time for its
// answer:
//
//	-> {"type":"REQUEST_CLAIM_DATA","id":"..."}
//	<- {"type":"CLAIM_DATA_RESPONSE","id":"...","data":{"formData":{},"uploadedFiles":[],"timestamp":"..."}}
//
// GET /claim-data exposes the same exchange over plain HTTP: 200 with the
// data, or 500 with {"error":"no-client"|"timeout"|"no-data"}.
package bridge
