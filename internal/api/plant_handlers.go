package api

import (
	"github.com/gin-gonic/gin"
	"github.com/yama-lei/plantodo/internal"
	"github.com/yama-lei/plantodo/internal/service"
)

func PostPlant(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)

		var req service.PlantRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleError(c, app.Logger(), internal.ValidationError("invalid JSON: %v", err), "Invalid plant request")
			return
		}

		plant, err := app.Plants().CreatePlant(c.Request.Context(), user.ID, &req)
		if err != nil {
			HandleError(c, app.Logger(), err, "Failed to create plant")
			return
		}
		HandleSuccess(c, app.Logger(), plant, nil)
	}
}

func GetPlants(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)
		plants, err := app.Plants().ListPlants(c.Request.Context(), user.ID)
		if err != nil {
			HandleError(c, app.Logger(), err, "Failed to list plants")
			return
		}
		HandleSuccess(c, app.Logger(), plants, nil)
	}
}

type experienceRequest struct {
	Amount int `json:"amount"`
}

func PutPlantExperience(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)

		var req experienceRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleError(c, app.Logger(), internal.ValidationError("invalid JSON: %v", err), "Invalid experience request")
			return
		}

		result, err := app.Plants().GrantExperience(c.Request.Context(), user.ID, c.Param("id"), req.Amount)
		if err != nil {
			HandleError(c, app.Logger(), err, "Failed to grant experience")
			return
		}
		HandleSuccess(c, app.Logger(), result, nil)
	}
}

func PutMainPlant(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)
		plant, err := app.Plants().SetMainPlant(c.Request.Context(), user.ID, c.Param("id"))
		if err != nil {
			HandleError(c, app.Logger(), err, "Failed to set main plant")
			return
		}
		HandleSuccess(c, app.Logger(), plant, nil)
	}
}

func DeletePlant(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)
		if err := app.Plants().DeletePlant(c.Request.Context(), user.ID, c.Param("id")); err != nil {
			HandleError(c, app.Logger(), err, "Failed to delete plant")
			return
		}
		HandleSuccess(c, app.Logger(), gin.H{"deleted": true}, nil)
	}
}
