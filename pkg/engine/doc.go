// Package engine implements the engine side of the model exchange.
//
// A Server answers one client session at a time over any byte stream. It
// reports its engine version and product in the handshake and serves model
// requests from a registry of builders keyed by model category:
//
//	srv := engine.NewServer("2.13",
//	    engine.WithBuilder("GradleBuild", engine.StaticBuilder(model)),
//	)
//	err := srv.Serve(ctx, stream)
//
// A request for a category with no registered builder is answered with
// NO_BUILDER, which clients report as "no model available". Builder errors
// are answered with BUILD_FAILED.
package engine
