package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ciangeneway-dot/Khumalo/internal/logger"
	"github.com/ciangeneway-dot/Khumalo/internal/requestdata"
	"github.com/ciangeneway-dot/Khumalo/internal/services"
	"github.com/ciangeneway-dot/Khumalo/internal/store"
)

type SummaryHandler struct {
	log       *logger.Logger
	generator services.SummaryGenerator
	store     store.Store
}

func NewSummaryHandler(log *logger.Logger, generator services.SummaryGenerator, st store.Store) *SummaryHandler {
	return &SummaryHandler{
		log:       log.With("Handler", "SummaryHandler"),
		generator: generator,
		store:     st,
	}
}

// Generate always answers with a summary when the patient exists:
// summarization problems degrade to the local rendering inside the service.
func (sh *SummaryHandler) Generate(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	sum, err := sh.generator.Generate(c.Request.Context(), patientID, rd.UserID)
	if err != nil {
		RespondStoreError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sum)
}

func (sh *SummaryHandler) ListByPatient(c *gin.Context) {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	sums, err := sh.store.ListSummariesByPatient(c.Request.Context(), patientID)
	if err != nil {
		RespondStoreError(c, err)
		return
	}
	RespondOK(c, sums)
}
