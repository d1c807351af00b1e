// Package voicebrain provides an HTTP client for the VoiceBrain notes API.
//
// # Overview
//
// The client covers the subset of the REST contract a capture-and-sync client
// needs: uploading recordings, listing and searching notes, editing and
// deleting them, and reading the account's usage counters.
//
//   - POST /notes/upload: multipart upload of one recording (field "file")
//   - GET /notes[?q=]: note list, optionally filtered by a semantic query
//   - GET/PUT/DELETE /notes/{id}: single note operations
//   - POST /notes/batch/delete: bulk delete
//   - GET /auth/me: profile, tier and seconds used this month
//
// # Usage
//
//	client, err := voicebrain.NewClient(cfg.APIURL, cfg.Token)
//	if err != nil {
//		return err
//	}
//	notes, err := client.ListNotes(ctx, "")
//
// # Errors
//
// Failures are typed so callers can decide what to do without parsing
// messages:
//
//   - *QuotaExceededError: the upload was refused (HTTP 403). Not retryable.
//   - *NetworkError: no HTTP response at all (DNS, refused, timeout).
//   - *ServerError: any other non-2xx response, with FastAPI's "detail" text.
//
// Use IsQuotaExceeded, IsNetwork and IsNotFound to classify wrapped errors.
//
// The client never retries. Retry policy belongs to the poller and the sync
// coordinator.
package voicebrain
