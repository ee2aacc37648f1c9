package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cppla/healthtracker/utils"
)

// HealthStatus is the liveness probe body.
type HealthStatus struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Health reports that the API process is up. It does not touch the store.
func Health(ctx *gin.Context) {
	utils.Success(ctx, http.StatusOK, HealthStatus{Status: "ok", Message: "Health Tracker API is running"})
}
