// Package attune is the official Go SDK for the Attune voice AI platform.
//
// The root package owns the pieces every product surface shares: the
// authenticated HTTP client with retry and backoff, credentials and token
// exchange, the error taxonomy, pagination and input validation. Product
// surfaces live in subpackages:
//
//   - tts: speech synthesis, buffered and streamed
//   - expression: emotion measurement over batched media and live streams
//   - evi: the realtime empathic voice interface and its configuration CRUD
//
// A minimal synthesis call looks like:
//
//	client, err := attune.NewClient(attune.WithAPIKey(key))
//	if err != nil {
//		log.Fatal(err)
//	}
//	speech := tts.New(client)
//	resp, err := speech.Synthesize(ctx, req)
//
// All subpackage clients are cheap views over one *Client and share its
// connection pool, credential and retry policy.
package attune
