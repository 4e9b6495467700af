// Package middleware provides HTTP middleware for authentication, authorization, and rate limiting.
//
// # Overview
//
// This package implements request processing middleware including bearer
// token resolution against the login context cache, role-based
// authorization checks against the authengine, and rate limiting
// (in-memory and Redis-backed).
//
// # Middleware Components
//
// AuthMiddleware: resolves a bearer token into a contextcache.TardisContext
//
//	router.Use(middleware.NewAuthMiddleware(resolver, optional=false).Handler)
//	// Extracts Bearer token, resolves it, adds TardisContext to request
//
// RequireScope: authorizes the resolved context against a (res_code, method)
// authengine entry
//
//	router.Use(middleware.RequireScope(engine, "iam/ca/role", "POST"))
//
// RateLimitMiddleware: In-memory rate limiting
//
//	limiter := middleware.NewRateLimiter(100, 10) // 100/min, 10 burst
//	router.Use(middleware.RateLimitMiddleware(limiter))
//
// DistributedRateLimitMiddleware: Redis-backed rate limiting
//
//	limiter := middleware.NewDistributedRateLimiter(redisClient, nil, "")
//	router.Use(middleware.DistributedRateLimitMiddleware(limiter))
//
// # Rate Limiting
//
// Default (Anonymous): 100 req/min, 10 burst
// Per-User: 1000 req/min, 50 burst
// Per-Bot: 5000 req/min, 100 burst
//
// # Related Packages
//
//   - pkg/token: token issuance/validation
//   - pkg/contextcache: login context resolution and caching
//   - pkg/authengine: (res_code, method) -> role authorization
package middleware
