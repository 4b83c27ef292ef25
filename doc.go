// Package asynchttp is an HTTP client built on a small continuation-
// passing execution engine (see core/promise and core/dispatch): every
// request is a Task or AsyncTask run on an explicit exec.Context — a UI
// loop, a named worker, or the shared pool — and its response streams
// through an AsyncHandler exactly as the §4.H state machine describes.
//
// A minimal round trip:
//
//	session := asynchttp.NewHttpSession(config.MustLoad[config.SessionConfig]())
//	client, err := asynchttp.NewClient(session)
//	body, err := asynchttp.GetSync[[]byte](client, ctx, url, asynchttp.NewMemoryHandler())
//
// Get and GetBlock route the exchange through the promise engine instead,
// returning a Promise[T] that downstream Then/ThenHandler stages can
// consume on whatever exec.Context they need.
package asynchttp
