// Copyright (C) 2025 Trask Labs (dev@traskapp.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/traskapp/trask/services/taskapi/auth"
	"github.com/traskapp/trask/services/taskapi/handlers"
	"github.com/traskapp/trask/services/taskapi/middleware"
	"github.com/traskapp/trask/services/taskapi/observability"
	"github.com/traskapp/trask/services/taskapi/reconcile"
	"github.com/traskapp/trask/services/taskapi/storage"
)

// SetupRoutes registers the full HTTP surface on router.
//
// Every /api route passes through the identity middleware first, so
// handlers always see a resolved Identity. The metrics registry is served
// at /metrics; gatherer may be nil to skip the endpoint (tests).
func SetupRoutes(router *gin.Engine, store *storage.Store, tokens *auth.TokenManager,
	rec *reconcile.Reconciler, metrics *observability.Metrics, gatherer prometheus.Gatherer) {

	router.GET("/health", handlers.HealthCheck)
	if gatherer != nil {
		router.GET("/metrics", gin.WrapH(
			promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	api := router.Group("/api")
	api.Use(middleware.IdentityMiddleware(tokens))

	users := api.Group("/users")
	{
		users.POST("/register", handlers.RegisterUser(rec))
		users.POST("/login", handlers.LoginUser(store, tokens, rec))
		users.POST("/logout", handlers.LogoutUser())
		users.GET("/check-auth", handlers.CheckAuth())
		users.GET("/profile", handlers.GetProfile(store))
	}

	tasks := api.Group("/tasks")
	{
		tasks.GET("", handlers.GetAllTasks(store))
		tasks.GET("/:taskId", handlers.GetTaskByID(store))
		tasks.POST("", handlers.CreateTask(store, metrics))
		tasks.PUT("/:taskId", handlers.UpdateTask(store))
		tasks.DELETE("/:taskId", handlers.DeleteTask(store))
	}
}
