package main

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/akshayrajeevnambiar/Pantrypal/internal/application"
	"github.com/akshayrajeevnambiar/Pantrypal/internal/domain"
	"github.com/akshayrajeevnambiar/Pantrypal/pkg/api"
	"github.com/akshayrajeevnambiar/Pantrypal/pkg/errors"
	"github.com/akshayrajeevnambiar/Pantrypal/pkg/logging"
	"github.com/akshayrajeevnambiar/Pantrypal/pkg/middleware"
)

// Request bodies

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type submitCountRequest struct {
	ItemID   string `json:"item_id" binding:"required"`
	Quantity int    `json:"count" binding:"gte=0"`
	Notes    string `json:"notes" binding:"omitempty,max=500"`
}

type submitBatchRequest struct {
	Counts []submitCountRequest `json:"counts" binding:"required,min=1,dive"`
}

type createItemRequest struct {
	Name     string `json:"name" binding:"required,min=1,max=120"`
	BaseUnit string `json:"base_unit" binding:"required,base_unit"`
	ParLevel int    `json:"par_level" binding:"gte=0"`
}

type updateItemRequest struct {
	Name     *string `json:"name" binding:"omitempty,min=1,max=120"`
	ParLevel *int    `json:"par_level" binding:"omitempty,gte=0"`
	IsActive *bool   `json:"is_active"`
}

func actorFromContext(c *gin.Context) (domain.Actor, bool) {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		return domain.Actor{}, false
	}
	return domain.Actor{
		UserID: claims.UserID,
		Name:   claims.Name,
		Role:   domain.Role(claims.Role),
	}, true
}

// Auth handlers

func loginHandler(service *application.AuthApplicationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger)

		var req loginRequest
		if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		result, err := service.Login(c.Request.Context(), application.LoginCommand{
			Email:    req.Email,
			Password: req.Password,
		})
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, result)
	}
}

// Count handlers

func submitCountHandler(service *application.CountApplicationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger)

		actor, ok := actorFromContext(c)
		if !ok {
			responder.RespondWithAppError(errors.ErrUnauthorized("authentication required"))
			return
		}

		var req submitCountRequest
		if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		dto, err := service.Submit(c.Request.Context(), actor, application.SubmitCountCommand{
			ItemID:   req.ItemID,
			Quantity: req.Quantity,
			Notes:    req.Notes,
		})
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusCreated, dto)
	}
}

func submitBatchHandler(service *application.CountApplicationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger)

		actor, ok := actorFromContext(c)
		if !ok {
			responder.RespondWithAppError(errors.ErrUnauthorized("authentication required"))
			return
		}

		var req submitBatchRequest
		if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		cmd := application.SubmitBatchCommand{
			Counts: make([]application.SubmitCountCommand, 0, len(req.Counts)),
		}
		for _, entry := range req.Counts {
			cmd.Counts = append(cmd.Counts, application.SubmitCountCommand{
				ItemID:   entry.ItemID,
				Quantity: entry.Quantity,
				Notes:    entry.Notes,
			})
		}

		dtos, err := service.SubmitBatch(c.Request.Context(), actor, cmd)
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"items": dtos,
			"total": len(dtos),
		})
	}
}

func listCountsHandler(service *application.CountApplicationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger)

		actor, ok := actorFromContext(c)
		if !ok {
			responder.RespondWithAppError(errors.ErrUnauthorized("authentication required"))
			return
		}

		page := api.ParsePagination(c)
		dtos, total, err := service.List(c.Request.Context(), actor, application.ListCountsQuery{
			Status:      c.Query("status"),
			ItemID:      c.Query("item_id"),
			SubmittedBy: c.Query("submitted_by"),
			Mine:        c.Query("mine") == "true",
			Limit:       page.Limit,
			Offset:      page.Offset,
		})
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, api.NewPageResponse(dtos, total, page))
	}
}

func listPendingHandler(service *application.CountApplicationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger)

		actor, ok := actorFromContext(c)
		if !ok {
			responder.RespondWithAppError(errors.ErrUnauthorized("authentication required"))
			return
		}

		page := api.ParsePagination(c)
		dtos, total, err := service.ListPending(c.Request.Context(), actor, page.Limit, page.Offset)
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, api.NewPageResponse(dtos, total, page))
	}
}

func getCountHandler(service *application.CountApplicationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger)

		dto, err := service.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, dto)
	}
}

func approveCountHandler(service *application.CountApplicationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger)

		actor, ok := actorFromContext(c)
		if !ok {
			responder.RespondWithAppError(errors.ErrUnauthorized("authentication required"))
			return
		}

		dto, err := service.Approve(c.Request.Context(), actor, application.DecideCountCommand{
			CountID: c.Param("id"),
		})
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, dto)
	}
}

func rejectCountHandler(service *application.CountApplicationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger)

		actor, ok := actorFromContext(c)
		if !ok {
			responder.RespondWithAppError(errors.ErrUnauthorized("authentication required"))
			return
		}

		dto, err := service.Reject(c.Request.Context(), actor, application.DecideCountCommand{
			CountID: c.Param("id"),
		})
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, dto)
	}
}

// Item handlers

func createItemHandler(service *application.ItemApplicationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger)

		actor, ok := actorFromContext(c)
		if !ok {
			responder.RespondWithAppError(errors.ErrUnauthorized("authentication required"))
			return
		}

		var req createItemRequest
		if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		dto, err := service.Create(c.Request.Context(), actor, application.CreateItemCommand{
			Name:     req.Name,
			BaseUnit: req.BaseUnit,
			ParLevel: req.ParLevel,
		})
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusCreated, dto)
	}
}

func listItemsHandler(service *application.ItemApplicationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger)

		page := api.ParsePagination(c)
		dtos, total, err := service.List(c.Request.Context(), application.ListItemsQuery{
			Search:     c.Query("search"),
			ActiveOnly: c.Query("active_only") == "true",
			Limit:      page.Limit,
			Offset:     page.Offset,
		})
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, api.NewPageResponse(dtos, total, page))
	}
}

func getItemHandler(service *application.ItemApplicationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger)

		dto, err := service.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, dto)
	}
}

func updateItemHandler(service *application.ItemApplicationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger)

		actor, ok := actorFromContext(c)
		if !ok {
			responder.RespondWithAppError(errors.ErrUnauthorized("authentication required"))
			return
		}

		var req updateItemRequest
		if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		dto, err := service.Update(c.Request.Context(), actor, application.UpdateItemCommand{
			ItemID:   c.Param("id"),
			Name:     req.Name,
			ParLevel: req.ParLevel,
			IsActive: req.IsActive,
		})
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, dto)
	}
}

func deleteItemHandler(service *application.ItemApplicationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger)

		actor, ok := actorFromContext(c)
		if !ok {
			responder.RespondWithAppError(errors.ErrUnauthorized("authentication required"))
			return
		}

		if err := service.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
			responder.RespondWithError(err)
			return
		}

		c.Status(http.StatusNoContent)
	}
}

// Dashboard handlers

func pendingApprovalsHandler(service *application.DashboardApplicationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger)

		actor, ok := actorFromContext(c)
		if !ok {
			responder.RespondWithAppError(errors.ErrUnauthorized("authentication required"))
			return
		}

		page := api.ParsePagination(c)
		dtos, total, err := service.PendingApprovals(c.Request.Context(), actor, page.Limit, page.Offset)
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, api.NewPageResponse(dtos, total, page))
	}
}

func lowStockHandler(service *application.DashboardApplicationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger)

		actor, ok := actorFromContext(c)
		if !ok {
			responder.RespondWithAppError(errors.ErrUnauthorized("authentication required"))
			return
		}

		dtos, err := service.LowStock(c.Request.Context(), actor)
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"items": dtos,
			"total": len(dtos),
		})
	}
}

func mySubmissionsHandler(service *application.DashboardApplicationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger)

		actor, ok := actorFromContext(c)
		if !ok {
			responder.RespondWithAppError(errors.ErrUnauthorized("authentication required"))
			return
		}

		page := api.ParsePagination(c)
		dtos, total, err := service.MySubmissions(c.Request.Context(), actor, c.Query("status"), page.Limit, page.Offset)
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, api.NewPageResponse(dtos, total, page))
	}
}
