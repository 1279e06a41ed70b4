// Package handlers contains HTTP health checks and reusable middleware.
//
// # Health Checks
//
// The HealthChecker interface allows registering multiple named health checks
// that are executed in parallel:
//
//	checker := handlers.NewCompositeHealthChecker("v1.0.0")
//	checker.AddCheck("database", handlers.NewDatabaseCheck(db))
//	checker.AddCheck("cache", handlers.NewCacheCheck(cache))
//
//	status := checker.Check(ctx)
//	if !status.Healthy {
//	    log.Warn("health check failed", logger.String("message", status.Message))
//	}
//
// # Caller Identity
//
// Learners are identified by the X-User-ID header set by the upstream auth
// gateway. Admin requests carry an API key that is verified against bcrypt
// hashes:
//
//	auth := handlers.NewAdminKeyAuth("X-API-Key", cfg.HTTP.AdminKeyHashes)
//	router.Use(auth.Middleware)
//
// Handlers then call Authorize with the owner of the resource:
//
//	if err := handlers.Authorize(r.Context(), userID); err != nil {
//	    // 403
//	}
package handlers
