// Package composite retrieves the same category of model from several
// builds at once, each served by its own engine and possibly a different
// engine version.
//
// A Connection owns a fixed set of participants. GetModels fans the
// request out to every participant concurrently and returns a ResultSet
// holding exactly one ModelResult per participant: either a model or a
// classified failure.
//
// # Failure Classification
//
//   - UnsupportedModelVersionError: the engine predates the category. This
//     is decided from the capability table before any model request is sent.
//   - NoModelAvailableError: the engine supports the category but the build
//     registers no builder for it.
//   - ModelBuildError: the builder exists but failed.
//   - ConnectionError: the engine could not be reached, the exchange broke
//     or the fetch timed out.
//
// None of these fail the call; they are per-participant results. Misuse of
// the API (fetching after Close, registering a build twice) returns a
// *UsageError instead.
//
// # Lifecycle
//
//	Created --Open--> Open --Close--> Closed
//
// Close is idempotent. It cancels fetches in flight, waits for them and
// releases each engine session once.
package composite
