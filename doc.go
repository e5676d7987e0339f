// Package authcore is the session and credential lifecycle core of the
// portal: a Redis-backed session store, a JWT credential issuer with a
// fail-open revocation list, and the login/validate/refresh/logout flows
// that tie them together.
//
// The package is library-first. The HTTP layer, the relational user model,
// and password verification are external collaborators: the [Engine]
// consumes an already-authenticated [UserRecord] at login, looks users up
// through a [UserProvider], and hands back opaque token strings. Nothing
// here routes requests or hashes passwords.
//
// Construction goes through the [Builder]:
//
//	engine, err := authcore.New().
//		WithRedis(client).
//		WithConfig(cfg).
//		WithUserProvider(users).
//		WithLogger(logger).
//		Build()
//
// Session tracking is best-effort by design: if Redis is unreachable at
// login the engine logs a warning and issues credentials without a session,
// so an infrastructure outage degrades device tracking instead of blocking
// sign-in.
package authcore
