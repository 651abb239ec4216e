package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/allocation_backend/config"
	"github.com/mmdatafocus/allocation_backend/middlewares"
	"github.com/mmdatafocus/allocation_backend/models"
	"github.com/mmdatafocus/allocation_backend/models/reports"
	"github.com/mmdatafocus/allocation_backend/utils"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const maxImportSizeBytes int64 = 5 * 1024 * 1024

type allocationHandlers struct {
	store  *models.SessionStore
	seed   func() (*models.AllocationState, error)
	logger *logrus.Logger
}

type updateAllocationRequest struct {
	// Quantity may be a JSON number or a formatted string like "1,200".
	Quantity any `json:"quantity"`
}

func newAllocationHandlers(store *models.SessionStore, seed func() (*models.AllocationState, error), logger *logrus.Logger) *allocationHandlers {
	return &allocationHandlers{store: store, seed: seed, logger: logger}
}

func (h *allocationHandlers) register(r gin.IRouter) {
	sessions := r.Group("/sessions")
	sessions.POST("", h.createSession)
	sessions.POST("/import", h.importSession)

	session := sessions.Group("/:"+middlewares.SessionParam, middlewares.SessionMiddleware(h.store))
	session.GET("", h.getSession)
	session.DELETE("", h.deleteSession)
	session.POST("/auto-assign", h.runAutoAssignment)
	session.PUT("/orders/:orderId/allocation", h.updateAllocation)
	session.POST("/reset", h.resetAllocations)
	session.POST("/orders", h.addOrder)
	session.POST("/save", h.save)
	session.GET("/export", h.export)
}

func (h *allocationHandlers) startSpan(c *gin.Context, name string) (context.Context, trace.Span) {
	ctx, span := tracer.Start(c.Request.Context(), name)
	if sid, ok := utils.GetSessionIdFromContext(ctx); ok {
		span.SetAttributes(attribute.String("allocation.session_id", sid))
	}
	if cid, ok := utils.GetCorrelationIdFromContext(ctx); ok {
		span.SetAttributes(attribute.String("correlation_id", cid))
	}
	return ctx, span
}

func (h *allocationHandlers) logFields(ctx context.Context, funcName string) logrus.Fields {
	fields := logrus.Fields{"field": funcName}
	if sid, ok := utils.GetSessionIdFromContext(ctx); ok {
		fields["session_id"] = sid
	}
	if cid, ok := utils.GetCorrelationIdFromContext(ctx); ok {
		fields["correlation_id"] = cid
	}
	if operator, ok := utils.GetOperatorFromContext(ctx); ok {
		fields["operator"] = operator
	}
	return fields
}

func (h *allocationHandlers) respondSnapshot(c *gin.Context, span trace.Span, status int, snap models.SessionSnapshot) {
	span.SetAttributes(
		attribute.Int64("allocation.version", snap.Version),
		attribute.Int("allocation.violations", len(snap.Violations)),
		attribute.Int("allocation.remaining_stock", snap.State.RemainingStock()),
	)
	c.JSON(status, snap)
}

// abortWithError maps service errors to HTTP statuses. Unknown errors are logged.
func (h *allocationHandlers) abortWithError(c *gin.Context, span trace.Span, funcName string, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	switch {
	case errors.Is(err, utils.ErrSessionNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, utils.ErrInvalidSnapshot):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		config.LogError(h.logger.WithFields(h.logFields(c.Request.Context(), funcName)), "allocationHandlers.go", funcName, "request", nil, err)
		_ = c.Error(err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func (h *allocationHandlers) createSession(c *gin.Context) {
	ctx, span := h.startSpan(c, "CreateSession")
	defer span.End()

	var seed *models.AllocationState
	if c.Request.ContentLength != 0 {
		var input models.AllocationState
		if err := c.ShouldBindJSON(&input); err != nil {
			h.abortWithError(c, span, "createSession", fmt.Errorf("%w: %v", utils.ErrInvalidSnapshot, err))
			return
		}
		if err := utils.ValidateStruct(&input); err != nil {
			span.RecordError(err)
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error":  utils.ErrInvalidSnapshot.Error(),
				"fields": utils.ProcessValidationErrors(err),
			})
			return
		}
		seed = &input
	} else {
		var err error
		if seed, err = h.seed(); err != nil {
			h.abortWithError(c, span, "createSession", err)
			return
		}
	}

	session, err := h.store.Create(seed)
	if err != nil {
		h.abortWithError(c, span, "createSession", err)
		return
	}
	ctx = utils.SetSessionIdInContext(ctx, session.ID)
	h.logger.WithFields(h.logFields(ctx, "createSession")).Info("allocation session created")
	h.respondSnapshot(c, span, http.StatusCreated, session.Snapshot())
}

func (h *allocationHandlers) importSession(c *gin.Context) {
	ctx, span := h.startSpan(c, "ImportSession")
	defer span.End()

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxImportSizeBytes)
	header, err := c.FormFile("file")
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	if !strings.EqualFold(filepath.Ext(header.Filename), ".xlsx") {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "only .xlsx workbooks are supported"})
		return
	}
	file, err := header.Open()
	if err != nil {
		h.abortWithError(c, span, "importSession", err)
		return
	}
	defer file.Close()

	seed, err := reports.ImportSnapshot(file)
	if err != nil {
		if !errors.Is(err, utils.ErrInvalidSnapshot) {
			err = fmt.Errorf("%w: %v", utils.ErrInvalidSnapshot, err)
		}
		h.abortWithError(c, span, "importSession", err)
		return
	}
	session, err := h.store.Create(seed)
	if err != nil {
		h.abortWithError(c, span, "importSession", err)
		return
	}
	ctx = utils.SetSessionIdInContext(ctx, session.ID)
	h.logger.WithFields(h.logFields(ctx, "importSession")).Info("allocation session imported from " + header.Filename)
	h.respondSnapshot(c, span, http.StatusCreated, session.Snapshot())
}

func (h *allocationHandlers) getSession(c *gin.Context) {
	_, span := h.startSpan(c, "GetSession")
	defer span.End()

	h.respondSnapshot(c, span, http.StatusOK, middlewares.SessionFromContext(c).Snapshot())
}

func (h *allocationHandlers) deleteSession(c *gin.Context) {
	ctx, span := h.startSpan(c, "DeleteSession")
	defer span.End()

	session := middlewares.SessionFromContext(c)
	if err := h.store.Delete(session.ID); err != nil {
		h.abortWithError(c, span, "deleteSession", err)
		return
	}
	h.logger.WithFields(h.logFields(ctx, "deleteSession")).Info("allocation session discarded")
	c.Status(http.StatusNoContent)
}

func (h *allocationHandlers) runAutoAssignment(c *gin.Context) {
	ctx, span := h.startSpan(c, "RunAutoAssignment")
	defer span.End()

	session := middlewares.SessionFromContext(c)
	span.SetAttributes(attribute.Bool("allocation.running_credit", session.Policy().RunningCustomerCredit))
	snap := session.RunAutoAssignment()
	h.logger.WithFields(h.logFields(ctx, "runAutoAssignment")).Debug(fmt.Sprintf("auto assignment left %d units", snap.State.RemainingStock()))
	h.respondSnapshot(c, span, http.StatusOK, snap)
}

func (h *allocationHandlers) updateAllocation(c *gin.Context) {
	ctx, span := h.startSpan(c, "UpdateAllocation")
	defer span.End()

	orderId := c.Param("orderId")
	span.SetAttributes(attribute.String("allocation.order_id", orderId))

	var req updateAllocationRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Quantity == nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "quantity is required"})
		return
	}
	qty, err := utils.DecimalFromAny(req.Quantity)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid quantity: " + err.Error()})
		return
	}

	snap := middlewares.SessionFromContext(c).UpdateAllocation(orderId, utils.CoerceQuantity(qty))
	fields := h.logFields(ctx, "updateAllocation")
	fields["order_id"] = orderId
	h.logger.WithFields(fields).Debug("manual allocation applied")
	h.respondSnapshot(c, span, http.StatusOK, snap)
}

func (h *allocationHandlers) resetAllocations(c *gin.Context) {
	_, span := h.startSpan(c, "ResetAllocations")
	defer span.End()

	h.respondSnapshot(c, span, http.StatusOK, middlewares.SessionFromContext(c).ResetAllocations())
}

func (h *allocationHandlers) addOrder(c *gin.Context) {
	_, span := h.startSpan(c, "AddOrder")
	defer span.End()

	h.respondSnapshot(c, span, http.StatusCreated, middlewares.SessionFromContext(c).AddOrder())
}

func (h *allocationHandlers) save(c *gin.Context) {
	ctx, span := h.startSpan(c, "Save")
	defer span.End()

	ack := middlewares.SessionFromContext(c).Save()
	span.SetAttributes(attribute.Int64("allocation.version", ack.Version))
	h.logger.WithFields(h.logFields(ctx, "save")).Info("allocation save acknowledged")
	c.JSON(http.StatusOK, ack)
}

// export writes the allocation table, or with ?format=snapshot a workbook that
// POST /sessions/import accepts.
func (h *allocationHandlers) export(c *gin.Context) {
	ctx, span := h.startSpan(c, "Export")
	defer span.End()

	snap := middlewares.SessionFromContext(c).Snapshot()
	var (
		f   *excelize.File
		err error
	)
	filename := "allocation.xlsx"
	if c.Query("format") == "snapshot" {
		f, err = reports.SnapshotWorkbook(snap.State)
		filename = "allocation-snapshot.xlsx"
	} else {
		f, err = reports.AllocationWorkbook(snap.State, snap.Violations)
	}
	if err != nil {
		h.abortWithError(c, span, "export", err)
		return
	}
	defer f.Close()

	c.Header("Content-Type", reports.XlsxContentType)
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Status(http.StatusOK)
	if err := f.Write(c.Writer); err != nil {
		span.RecordError(err)
		config.LogError(h.logger.WithFields(h.logFields(ctx, "export")), "allocationHandlers.go", "export", "write workbook", snap.SessionId, err)
		_ = c.Error(err)
	}
}
